package analyzer

import (
	"image"
	"image/color"
	"testing"
)

func TestCoverageDetector(t *testing.T) {
	// two opaque rectangles on a transparent film
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	fill := func(r image.Rectangle, c color.RGBA) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
	fill(image.Rect(10, 20, 40, 60), color.RGBA{0, 255, 0, 255})
	fill(image.Rect(120, 10, 180, 30), color.RGBA{128, 0, 0, 128})
	img.SetRGBA(100, 90, color.RGBA{0, 0, 1, 1}) // below MinArea

	regions, err := NewCoverageDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d: %+v", len(regions), regions)
	}

	// sorted by top edge
	if regions[0].Rect != image.Rect(120, 10, 180, 30) {
		t.Errorf("Unexpected first region %v", regions[0].Rect)
	}
	if regions[1].Rect != image.Rect(10, 20, 40, 60) {
		t.Errorf("Unexpected second region %v", regions[1].Rect)
	}
	if regions[1].Fill() != 1 {
		t.Errorf("Expected full fill, got %.2f", regions[1].Fill())
	}
	if Union(regions) != image.Rect(10, 10, 180, 60) {
		t.Errorf("Unexpected union %v", Union(regions))
	}
	if !Covers(regions, image.Rect(30, 50, 35, 55)) || Covers(regions, image.Rect(60, 70, 80, 80)) {
		t.Error("Covers gave wrong answer")
	}

	for i, r := range regions {
		t.Logf("Region %d: %v (%d px, fill %.2f)", i, r.Rect, r.Pixels, r.Fill())
	}
}

func TestCoverageDetectorNonRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 5; y < 10; y++ {
		for x := 5; x < 10; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	for _, variant := range []string{"coverage", "luma"} {
		t.Run(variant, func(t *testing.T) {
			d, err := NewDetector(variant)
			if err != nil {
				t.Fatal(err)
			}
			regions, _ := d.Detect(img)
			if len(regions) != 1 || regions[0].Rect != image.Rect(5, 5, 10, 10) {
				t.Errorf("Unexpected regions %+v", regions)
			}
		})
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"coverage", false},
		{"", false}, // default
		{"luma", false},
		{"contrast", true},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if detector == nil {
					t.Error("Expected detector, got nil")
				}
			}
		})
	}
}
