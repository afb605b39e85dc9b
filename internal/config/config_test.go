package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/scenecomp/internal/scene"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.Samples != 64 || cfg.Frames != 10 || cfg.FPS != 24 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if len(cfg.Scenes) != 3 || cfg.Scenes[0].Shape != scene.Sphere || cfg.Scenes[2].Position.Y != -2 {
		t.Errorf("Unexpected default scenes: %+v", cfg.Scenes)
	}
	rs := cfg.RenderSettings()
	if !rs.Transparent || rs.Samples != 64 {
		t.Errorf("Unexpected render settings: %+v", rs)
	}
}

func TestLoadProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	data := `
width: 640
height: 360
frames: 5
phase: fixed
scenes:
  - name: ball
    shape: sphere
    position: {x: 0, y: 0, z: -10}
    color: {r: 1, g: 1, b: 0, a: 1}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.LoadProject(path); err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if cfg.Width != 640 || cfg.Frames != 5 || cfg.Phase != "fixed" {
		t.Errorf("Overlay not applied: %+v", cfg)
	}
	if cfg.FPS != 24 || cfg.Samples != 64 {
		t.Errorf("Missing keys should keep defaults, got fps=%d samples=%d", cfg.FPS, cfg.Samples)
	}
	if len(cfg.Scenes) != 1 || cfg.Scenes[0].Name != "ball" || cfg.Scenes[0].Position.Z != -10 || cfg.Scenes[0].Color.G != 1 {
		t.Errorf("Unexpected scenes: %+v", cfg.Scenes)
	}
	if cfg.ProjectFile != path {
		t.Errorf("ProjectFile = %q", cfg.ProjectFile)
	}
}

func TestLoadProjectUnknownShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	os.WriteFile(path, []byte("scenes:\n  - name: donut\n    shape: torus\n"), 0644)

	if err := Default().LoadProject(path); !errors.Is(err, scene.ErrUnknownShape) {
		t.Errorf("Expected ErrUnknownShape, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"percentage", func(c *Config) { c.Percentage = 150 }},
		{"frames", func(c *Config) { c.Frames = 0 }},
		{"fps", func(c *Config) { c.FPS = -1 }},
		{"no scenes", func(c *Config) { c.Scenes = nil }},
		{"duplicate", func(c *Config) { c.Scenes[1].Name = c.Scenes[0].Name }},
		{"bad shape", func(c *Config) { c.Scenes[0].Shape = scene.ShapeKind(99) }},
		{"page zero", func(c *Config) { c.Background, c.BackgroundPage = "plate.pdf", 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestBackgroundKeys(t *testing.T) {
	cfg := Default()
	if cfg.BackgroundColor == nil || *cfg.BackgroundColor != (scene.RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}) {
		t.Errorf("Expected a grey backdrop by default, got %+v", cfg.BackgroundColor)
	}
	if cfg.BackgroundPage != 1 || cfg.PlateIndex() != 0 {
		t.Errorf("Pages should start at 1, got page %d index %d", cfg.BackgroundPage, cfg.PlateIndex())
	}

	path := filepath.Join(t.TempDir(), "project.yaml")
	data := "background: deck.pdf\nbackground_page: 3\nbackground_color: {r: 0.1, g: 0.2, b: 0.3, a: 1}\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if err := cfg.LoadProject(path); err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if cfg.PlateIndex() != 2 {
		t.Errorf("background_page 3 should be index 2, got %d", cfg.PlateIndex())
	}
	if *cfg.BackgroundColor != (scene.RGBA{R: 0.1, G: 0.2, B: 0.3, A: 1}) {
		t.Errorf("Unexpected backdrop %+v", cfg.BackgroundColor)
	}

	os.WriteFile(path, []byte("background_color: null\n"), 0644)
	if err := cfg.LoadProject(path); err != nil {
		t.Fatal(err)
	}
	if cfg.BackgroundColor != nil {
		t.Errorf("null should remove the backdrop, got %+v", cfg.BackgroundColor)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    *scene.RGBA
		wantErr bool
	}{
		{"none", nil, false},
		{"", nil, false},
		{"0.5,0.5,0.5", &scene.RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}, false},
		{"1, 0, 0, 0.25", &scene.RGBA{R: 1, A: 0.25}, false},
		{"1,0", nil, true},
		{"2,0,0", nil, true},
		{"red", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
