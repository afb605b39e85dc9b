package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/scenecomp/internal/scene"
)

var ErrInvalid = errors.New("config: invalid value")

// SceneConfig describes one contributing scene of the project.
type SceneConfig struct {
	Name     string          `yaml:"name"`
	Shape    scene.ShapeKind `yaml:"shape"`
	Position scene.Vec3      `yaml:"position"`
	Color    scene.RGBA      `yaml:"color"`
}

type Config struct {
	ProjectFile    string  `yaml:"-"`
	SessionFile    string  `yaml:"session"`
	FramesDir      string  `yaml:"frames_dir"`
	OutputDir      string  `yaml:"output_dir"`
	OutputVideo    string  `yaml:"output_video"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	Percentage     int     `yaml:"percentage"`
	Samples        int     `yaml:"samples"`
	Frames         int     `yaml:"frames"`
	FPS            int     `yaml:"fps"`
	MoveRange      float64 `yaml:"move_range"`
	Frequency      float64 `yaml:"frequency"`
	Phase          string  `yaml:"phase"`
	Seed           int64   `yaml:"seed"`
	Viewer         bool    `yaml:"viewer"`
	Background     string  `yaml:"background"`
	BackgroundPage int     `yaml:"background_page"` // с единицы
	// BackgroundColor is the flat backdrop under the finished chain; nil keeps
	// the composite transparent.
	BackgroundColor *scene.RGBA   `yaml:"background_color"`
	Stamp           bool          `yaml:"stamp"`
	Detector        string        `yaml:"detector"`
	VideoEncoder    string        `yaml:"-"`
	Quality         int           `yaml:"quality"`
	ShowStats       bool          `yaml:"-"`
	Debug           bool          `yaml:"-"`
	BuildVersion    string        `yaml:"-"`
	Scenes          []SceneConfig `yaml:"scenes"`
}

// Default mirrors the settings the example scripts hard-coded.
func Default() *Config {
	return &Config{
		OutputDir:  "output",
		Width:      1920,
		Height:     1080,
		Percentage: 100,
		Samples:    64,
		Frames:     10,
		FPS:        24,
		MoveRange:  0.5,
		Frequency:  0.3,
		Phase:      "per-frame",
		Detector:   "coverage",
		Scenes:     DefaultScenes(),

		BackgroundPage:  1,
		BackgroundColor: &scene.RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1},
	}
}

// DefaultScenes is the three-object demo: sphere, cube and cone twenty
// units in front of the camera.
func DefaultScenes() []SceneConfig {
	return []SceneConfig{
		{Name: "sphere", Shape: scene.Sphere, Position: scene.Vec3{X: -5, Y: 2, Z: -20}, Color: scene.RGBA{G: 1, A: 1}},
		{Name: "cube", Shape: scene.Cube, Position: scene.Vec3{X: 5, Y: 2, Z: -20}, Color: scene.RGBA{R: 1, A: 1}},
		{Name: "cone", Shape: scene.Cone, Position: scene.Vec3{Y: -2, Z: -20}, Color: scene.RGBA{B: 1, A: 1}},
	}
}

// LoadProject overlays the YAML project file at path onto c. Keys missing
// from the file keep their current value.
func (c *Config) LoadProject(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("project %s: %w", path, err)
	}
	c.ProjectFile = path
	return nil
}

// RenderSettings converts the resolution part of c.
func (c *Config) RenderSettings() scene.RenderSettings {
	rs := scene.DefaultRenderSettings()
	rs.Width, rs.Height = c.Width, c.Height
	rs.Percentage = c.Percentage
	rs.Samples = c.Samples
	return rs
}

// PlateIndex is the zero-based page of the background document.
func (c *Config) PlateIndex() int {
	return c.BackgroundPage - 1
}

// ParseColor reads "r,g,b" or "r,g,b,a" with components in 0-1. "none" and
// the empty string mean no color.
func ParseColor(s string) (*scene.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "none" || s == "transparent" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("%w: color %q", ErrInvalid, s)
	}
	v := []float64{0, 0, 0, 1}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("%w: color %q", ErrInvalid, s)
		}
		v[i] = f
	}
	return &scene.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalid, c.Width, c.Height)
	case c.Percentage <= 0 || c.Percentage > 100:
		return fmt.Errorf("%w: percentage %d", ErrInvalid, c.Percentage)
	case c.Samples <= 0:
		return fmt.Errorf("%w: samples %d", ErrInvalid, c.Samples)
	case c.Frames <= 0:
		return fmt.Errorf("%w: frames %d", ErrInvalid, c.Frames)
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps %d", ErrInvalid, c.FPS)
	case c.MoveRange < 0:
		return fmt.Errorf("%w: move range %f", ErrInvalid, c.MoveRange)
	case len(c.Scenes) == 0:
		return fmt.Errorf("%w: no scenes", ErrInvalid)
	case c.Background != "" && c.BackgroundPage < 1:
		return fmt.Errorf("%w: background page %d (pages start at 1)", ErrInvalid, c.BackgroundPage)
	}

	seen := make(map[string]bool, len(c.Scenes))
	for _, s := range c.Scenes {
		if s.Name == "" {
			return fmt.Errorf("%w: scene without name", ErrInvalid)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate scene %q", ErrInvalid, s.Name)
		}
		seen[s.Name] = true
		if !s.Shape.Valid() {
			return fmt.Errorf("%w: scene %q: %w", ErrInvalid, s.Name, scene.ErrUnknownShape)
		}
	}
	return nil
}
