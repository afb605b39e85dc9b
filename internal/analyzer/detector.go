// Package analyzer finds the regions a composite actually covers.
package analyzer

import "image"

// Region is one connected non-transparent area of an image.
type Region struct {
	Rect   image.Rectangle
	Pixels int // covered pixels inside Rect
}

// Fill is the share of Rect that is covered, 0.0-1.0.
func (r Region) Fill() float64 {
	area := r.Rect.Dx() * r.Rect.Dy()
	if area == 0 {
		return 0
	}
	return float64(r.Pixels) / float64(area)
}

// Detector is the interface for image analysis strategies
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}
