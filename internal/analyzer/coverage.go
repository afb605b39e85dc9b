package analyzer

import (
	"image"
	"image/color"
	"sort"
)

// Channel selects what counts as coverage.
type Channel int

const (
	Alpha Channel = iota
	Luma
)

// CoverageDetector thresholds one channel into a mask and reports its
// 4-connected components.
type CoverageDetector struct {
	Threshold uint8 // strictly above counts as covered
	MinArea   int   // regions with fewer pixels are dropped
	Channel   Channel
}

func NewCoverageDetector() *CoverageDetector {
	return &CoverageDetector{Threshold: 0, MinArea: 4, Channel: Alpha}
}

// Detect returns the regions sorted top-to-bottom, left-to-right.
func (d *CoverageDetector) Detect(img image.Image) ([]Region, error) {
	mask := d.mask(img)
	regions := findRegions(mask)

	out := regions[:0]
	for _, r := range regions {
		if r.Pixels >= d.MinArea {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Rect.Min, out[j].Rect.Min
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out, nil
}

func (d *CoverageDetector) mask(img image.Image) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)

	if rgba, ok := img.(*image.RGBA); ok && d.Channel == Alpha {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				if rgba.Pix[rgba.PixOffset(x, y)+3] > d.Threshold {
					mask.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
		return mask
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var v uint8
			if d.Channel == Luma {
				v = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			} else {
				_, _, _, a := img.At(x, y).RGBA()
				v = uint8(a >> 8)
			}
			if v > d.Threshold {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// findRegions labels connected white areas of mask
func findRegions(mask *image.Gray) []Region {
	bounds := mask.Bounds()
	visited := make([]bool, bounds.Dx()*bounds.Dy())

	var regions []Region
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := (y-bounds.Min.Y)*bounds.Dx() + (x - bounds.Min.X)
			if mask.GrayAt(x, y).Y != 0 && !visited[i] {
				regions = append(regions, floodFill(mask, visited, x, y))
			}
		}
	}
	return regions
}

// floodFill marks the component at (startX, startY) and returns its extent
func floodFill(mask *image.Gray, visited []bool, startX, startY int) Region {
	bounds := mask.Bounds()
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	pixels := 0

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !p.In(bounds) {
			continue
		}
		i := (p.Y-bounds.Min.Y)*bounds.Dx() + (p.X - bounds.Min.X)
		if visited[i] || mask.GrayAt(p.X, p.Y).Y == 0 {
			continue
		}
		visited[i] = true
		pixels++

		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)

		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}

	return Region{Rect: image.Rect(minX, minY, maxX+1, maxY+1), Pixels: pixels}
}

// Covers reports whether any region overlaps rect.
func Covers(regions []Region, rect image.Rectangle) bool {
	for _, r := range regions {
		if r.Rect.Overlaps(rect) {
			return true
		}
	}
	return false
}

// Union is the bounding box of all regions.
func Union(regions []Region) image.Rectangle {
	var u image.Rectangle
	for _, r := range regions {
		u = u.Union(r.Rect)
	}
	return u
}
