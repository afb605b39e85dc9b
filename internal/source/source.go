// Package source loads background plates and frame sequences from disk.
package source

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

var (
	ErrNoImages    = errors.New("source: no images found")
	ErrPageRange   = errors.New("source: page out of range")
	ErrUnsupported = errors.New("source: unsupported file type")
)

// Source is an indexed set of images: the frames of a directory, a single
// image file or the pages of a PDF.
type Source interface {
	Count() int
	Dimensions(index int) (width, height float64, err error)
	Image(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks the source implementation by file type.
func Open(path string) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewPDFSource(path)
	}
	return NewImageSource(path)
}

type PDFSource struct {
	doc  *fitz.Document
	path string
}

func NewPDFSource(path string) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &PDFSource{doc: doc, path: path}, nil
}

func (f *PDFSource) Count() int {
	return f.doc.NumPage()
}

func (f *PDFSource) Dimensions(index int) (float64, float64, error) {
	if index < 0 || index >= f.Count() {
		return 0, 0, fmt.Errorf("%w: %d of %d", ErrPageRange, index, f.Count())
	}
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *PDFSource) Image(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= f.Count() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, index, f.Count())
	}
	return f.doc.ImageDPI(index, float64(dpi))
}

func (f *PDFSource) Close() error {
	return f.doc.Close()
}

// LoadPlate reads image index of path and scales it to fill size, so it can
// sit underneath the rendered layers.
func LoadPlate(path string, index int, size image.Point) (*image.RGBA, error) {
	src, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("background %s: %w", path, err)
	}
	defer src.Close()

	if index < 0 || index >= src.Count() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, index, src.Count())
	}

	// Подбираем DPI так, чтобы страница была не меньше кадра
	dpi := 72
	if w, h, err := src.Dimensions(index); err == nil && w > 0 && h > 0 {
		scale := max(float64(size.X)/w, float64(size.Y)/h)
		if scale > 1 {
			dpi = int(72*scale + 0.5)
		}
	}

	img, err := src.Image(index, dpi)
	if err != nil {
		return nil, err
	}

	plate := image.NewRGBA(image.Rectangle{Max: size})
	draw.CatmullRom.Scale(plate, plate.Bounds(), img, img.Bounds(), draw.Src, nil)
	return plate, nil
}
