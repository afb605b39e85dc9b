package source

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "frame_0002.PNG"), 4, 4, color.NRGBA{A: 255})
	writePNG(t, filepath.Join(dir, "frame_0001.png"), 8, 6, color.NRGBA{A: 255})
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.png"), 0755)

	src, err := NewImageSource(dir)
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Count() != 2 {
		t.Fatalf("Expected 2 images, got %d: %v", src.Count(), src.Paths())
	}
	if filepath.Base(src.Paths()[0]) != "frame_0001.png" {
		t.Errorf("Expected sorted order, got %v", src.Paths())
	}

	w, h, err := src.Dimensions(0)
	if err != nil || w != 8 || h != 6 {
		t.Errorf("Dimensions = %vx%v, %v", w, h, err)
	}
	if _, err := src.Image(5, 72); !errors.Is(err, ErrPageRange) {
		t.Errorf("Expected ErrPageRange, got %v", err)
	}
}

func TestImageSourceErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewImageSource(dir); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
	txt := filepath.Join(dir, "a.txt")
	os.WriteFile(txt, []byte("x"), 0644)
	if _, err := NewImageSource(txt); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if _, err := Open(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("Expected error for missing PDF")
	}
}

func TestLoadPlate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.png")
	writePNG(t, path, 10, 10, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	plate, err := LoadPlate(path, 0, image.Pt(32, 16))
	if err != nil {
		t.Fatalf("LoadPlate failed: %v", err)
	}
	if plate.Bounds() != image.Rect(0, 0, 32, 16) {
		t.Errorf("Unexpected bounds %v", plate.Bounds())
	}
	if c := plate.RGBAAt(16, 8); c.A != 255 || c.R < 195 {
		t.Errorf("Unexpected plate color %+v", c)
	}
	if _, err := LoadPlate(path, 1, image.Pt(8, 8)); !errors.Is(err, ErrPageRange) {
		t.Errorf("Expected ErrPageRange, got %v", err)
	}
}
