// Package stamp burns a QR code with render metadata into a frame corner.
package stamp

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/skip2/go-qrcode"
)

var ErrTooSmall = errors.New("stamp: frame too small for stamp")

// Margin between the stamp and the frame edge, in pixels.
const Margin = 8

// Text is the payload written for one frame.
func Text(project string, frame int, scenes []string) string {
	return fmt.Sprintf("%s|frame=%d|scenes=%d", project, frame, len(scenes))
}

// Apply draws a size×size QR code of text into the bottom-right corner of dst.
func Apply(dst *image.RGBA, text string, size int) error {
	b := dst.Bounds()
	if size <= 0 || b.Dx() < size+2*Margin || b.Dy() < size+2*Margin {
		return fmt.Errorf("%w: %dx%d for %dpx stamp", ErrTooSmall, b.Dx(), b.Dy(), size)
	}

	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qrcode: %w", err)
	}
	q.DisableBorder = true
	code := q.Image(size)

	at := image.Pt(b.Max.X-Margin-size, b.Max.Y-Margin-size)
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(image.Pt(size, size))}, code, code.Bounds().Min, draw.Src)
	return nil
}
