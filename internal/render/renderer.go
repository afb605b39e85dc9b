// Package render is the software preview renderer: it rasterizes the
// silhouette of every primitive with flat shading evaluated from its
// material graph.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"
	"sort"

	"github.com/gogpu/gg"

	"github.com/ivlev/scenecomp/internal/scene"
)

var (
	ErrNoCamera   = errors.New("render: scene has no camera")
	ErrResolution = errors.New("render: invalid resolution")
)

// Renderer turns a scene into an RGBA image (alpha-premultiplied).
type Renderer interface {
	Render(ctx context.Context, sc *scene.Scene) (*image.RGBA, error)
}

// World is the background of scenes rendered without a transparent film.
var World = scene.RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}

const ambient = 0.15

type Software struct{}

func NewSoftware() *Software {
	return &Software{}
}

// EnableDebugLogging routes gg rasterizer diagnostics to l.
func EnableDebugLogging(l *slog.Logger) {
	gg.SetLogger(l)
}

func (r *Software) Render(ctx context.Context, sc *scene.Scene) (*image.RGBA, error) {
	w, h := sc.Render.Resolution()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrResolution, w, h)
	}
	if sc.Camera == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCamera, sc.Name)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if !sc.Render.Transparent {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(World.NRGBA()), image.Point{}, draw.Src)
	}

	pr := newProjector(sc.Camera, w, h)

	// painter's order: far to near
	meshes := append([]*scene.Mesh(nil), sc.Meshes...)
	sort.SliceStable(meshes, func(i, j int) bool {
		return pr.depth(meshes[i].Location) > pr.depth(meshes[j].Location)
	})

	for _, m := range meshes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.drawMesh(dst, pr, sc, m); err != nil {
			return nil, fmt.Errorf("render %s: %w", m.Name, err)
		}
	}
	return dst, nil
}

func (r *Software) drawMesh(dst *image.RGBA, pr projector, sc *scene.Scene, m *scene.Mesh) error {
	var projected []point
	for _, p := range samplePoints(m) {
		if pt, ok := pr.project(p); ok {
			projected = append(projected, pt)
		}
	}
	hull := convexHull(projected)
	if len(hull) < 3 {
		return nil
	}

	surface, err := surfaceColor(sc, m)
	if err != nil {
		return err
	}

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	dc := gg.NewContext(w, h)
	defer dc.Close()

	dc.SetRGBA(1, 1, 1, 1)
	dc.MoveTo(hull[0].X, hull[0].Y)
	for _, p := range hull[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
	if err := dc.Fill(); err != nil {
		return err
	}

	// gg fills white: only the alpha channel of its image is used as coverage
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(surface.NRGBA()), image.Point{}, dc.Image(), image.Point{}, draw.Over)
	return nil
}

// surfaceColor evaluates the material and applies the sun light.
func surfaceColor(sc *scene.Scene, m *scene.Mesh) (scene.RGBA, error) {
	c := scene.RGBA{R: 0.8, G: 0.8, B: 0.8, A: 1}
	if m.Material != nil && m.Material.Graph != nil {
		v, err := m.Material.Graph.Evaluate()
		if err != nil {
			return c, err
		}
		c = scene.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
	}

	shade := 1.0
	if sc.Light != nil {
		normal := sc.Camera.Location.Sub(m.Location).Normalize()
		toLight := sc.Light.Direction.Scale(-1).Normalize()
		lambert := math.Max(0, normal.Dot(toLight)) * sc.Light.Strength
		shade = math.Min(1, ambient+(1-ambient)*lambert)
	}
	c.R *= shade
	c.G *= shade
	c.B *= shade
	return c, nil
}
