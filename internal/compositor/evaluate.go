package compositor

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/ivlev/scenecomp/internal/system"
)

// Result holds the images reaching the sinks.
type Result struct {
	Composite *image.RGBA
	// Viewer is nil when the preview sink is not wired.
	Viewer *image.RGBA
	// Foreground is the blended layers before the background color. It is
	// Composite itself when the graph has no background color.
	Foreground *image.RGBA
}

// Evaluate runs the graph in construction order. layers maps scene names to
// their rendered images.
func (g *Graph) Evaluate(layers map[string]image.Image) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	out := make([]image.Image, len(g.nodes))
	var scratch []*image.RGBA
	defer func() {
		for _, img := range scratch {
			system.PutImage(img)
		}
	}()

	for _, n := range g.nodes {
		switch n.Kind {
		case RenderLayer:
			img, ok := layers[n.Scene]
			if !ok || img == nil {
				return nil, fmt.Errorf("%w: %s", ErrMissingLayer, n.Scene)
			}
			out[n.ID] = img
		case ImageInput:
			out[n.ID] = n.image
		case ColorInput:
			out[n.ID] = image.NewUniform(n.color)
		case AlphaOver:
			bg, fg := out[n.Inputs[0]], out[n.Inputs[1]]
			ref := bg
			if !sized(ref) {
				ref = fg
			}
			if !sized(ref) {
				return nil, fmt.Errorf("%w: %s", ErrUnsized, n.Name)
			}
			b := ref.Bounds()
			rect := image.Rect(0, 0, b.Dx(), b.Dy())
			if !sized(bg) {
				bg = fill(bg, rect, &scratch)
			}
			if !sized(fg) {
				fg = fill(fg, rect, &scratch)
			}
			dst := system.GetImage(rect)
			Over(dst, bg, fg)
			scratch = append(scratch, dst)
			out[n.ID] = dst
		case Composite, Viewer:
			out[n.ID] = out[n.Inputs[0]]
		}
	}

	if !sized(out[g.composite]) {
		return nil, ErrUnsized
	}
	res := &Result{Composite: cloneRGBA(out[g.composite])}
	res.Foreground = res.Composite
	if g.foreground >= 0 {
		res.Foreground = cloneRGBA(out[g.foreground])
	}
	if g.viewer >= 0 {
		if !sized(out[g.viewer]) {
			return nil, ErrUnsized
		}
		res.Viewer = cloneRGBA(out[g.viewer])
	}
	return res, nil
}

// sized reports whether img has finite bounds. Flat color nodes do not.
func sized(img image.Image) bool {
	_, ok := img.(*image.Uniform)
	return !ok
}

// fill materializes a flat color node at rect using a pooled buffer.
func fill(src image.Image, rect image.Rectangle, scratch *[]*image.RGBA) *image.RGBA {
	dst := system.GetImage(rect)
	draw.Draw(dst, rect, src, image.Point{}, draw.Src)
	*scratch = append(*scratch, dst)
	return dst
}

// Over writes fg composited over bg into dst (premultiplied alpha):
// out = fg + (1 - fg.a) * bg. dst has the size of bg; fg is aligned to the
// top-left corner and treated as transparent outside its bounds.
func Over(dst *image.RGBA, bg, fg image.Image) {
	b := asRGBA(bg)
	f := asRGBA(fg)
	bb, fb := b.Bounds(), f.Bounds()
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			di := dst.PixOffset(dst.Rect.Min.X+x, dst.Rect.Min.Y+y)

			var bp [4]uint32
			if x < bb.Dx() && y < bb.Dy() {
				i := b.PixOffset(bb.Min.X+x, bb.Min.Y+y)
				bp = [4]uint32{uint32(b.Pix[i]), uint32(b.Pix[i+1]), uint32(b.Pix[i+2]), uint32(b.Pix[i+3])}
			}
			var fp [4]uint32
			if x < fb.Dx() && y < fb.Dy() {
				i := f.PixOffset(fb.Min.X+x, fb.Min.Y+y)
				fp = [4]uint32{uint32(f.Pix[i]), uint32(f.Pix[i+1]), uint32(f.Pix[i+2]), uint32(f.Pix[i+3])}
			}

			inv := 255 - fp[3]
			for c := 0; c < 4; c++ {
				v := fp[c] + (bp[c]*inv+127)/255
				if v > 255 {
					v = 255
				}
				dst.Pix[di+c] = uint8(v)
			}
		}
	}
}

func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}

func cloneRGBA(img image.Image) *image.RGBA {
	src := asRGBA(img)
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
