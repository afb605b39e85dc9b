// Package scene builds isolated single-object scenes: one shaded primitive,
// its own camera and sun light, rendered onto a transparent film.
package scene

import (
	"errors"
	"fmt"
	"image/color"
	"math"
)

var (
	ErrEmptyName      = errors.New("scene name is empty")
	ErrDuplicateScene = errors.New("duplicate scene name")
	ErrInvalidScene   = errors.New("invalid scene")
)

// Vec3 is a point or direction in world space (Y up, camera looks down -Z).
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{v.Y*o.Z - v.Z*o.Y, v.Z*o.X - v.X*o.Z, v.X*o.Y - v.Y*o.X}
}

func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Axis returns component i (0=X, 1=Y, 2=Z).
func (v Vec3) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

// RGBA is a straight (not premultiplied) linear color in 0-1.
type RGBA struct {
	R, G, B, A float64
}

// NRGBA converts c to 8 bits per channel, clamping to 0-1.
func (c RGBA) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// Forward is the default camera and sun direction.
var Forward = Vec3{0, 0, -1}

// Mesh is the shaded primitive of a scene.
type Mesh struct {
	Name     string
	Shape    ShapeKind
	Location Vec3
	// Base is the location at frame 0; animation offsets are relative to it.
	Base     Vec3
	Size     float64
	Material *Material
}

// Camera is a pinhole camera.
type Camera struct {
	Name        string
	Location    Vec3
	Forward     Vec3
	FocalLength float64 // mm
	SensorWidth float64 // mm
}

// Light is a directional (sun) light.
type Light struct {
	Name      string
	Location  Vec3
	Direction Vec3
	Strength  float64
}

// RenderSettings is the per-scene render target.
type RenderSettings struct {
	Width       int
	Height      int
	Percentage  int
	Samples     int
	Transparent bool
	Devices     DeviceConfig
}

// Resolution returns the pixel size after applying the percentage.
func (r RenderSettings) Resolution() (int, int) {
	pct := r.Percentage
	if pct <= 0 {
		pct = 100
	}
	return r.Width * pct / 100, r.Height * pct / 100
}

func DefaultRenderSettings() RenderSettings {
	return RenderSettings{
		Width:       1920,
		Height:      1080,
		Percentage:  100,
		Samples:     64,
		Transparent: true,
	}
}

// Scene owns one mesh, one camera and one light. The compositing scene owns none.
type Scene struct {
	Name   string
	Meshes []*Mesh
	Camera *Camera
	Light  *Light
	Render RenderSettings
	Frame  int
}

// Build creates a scene holding a single primitive of the given kind.
// Devices in settings are all switched on.
func Build(name string, kind ShapeKind, pos Vec3, c RGBA, settings RenderSettings) (*Scene, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	mat, err := newMaterial(name+"_material", kind, c)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}

	settings.Transparent = true
	settings.Devices = settings.Devices.EnableAll()

	sc := &Scene{
		Name:   name,
		Render: settings,
		Frame:  1,
		Meshes: []*Mesh{{
			Name:     name + "_" + kind.String(),
			Shape:    kind,
			Location: pos,
			Base:     pos,
			Size:     1,
			Material: mat,
		}},
		Camera: &Camera{
			Name:        name + "_camera",
			Forward:     Forward,
			FocalLength: 50,
			SensorWidth: 36,
		},
		Light: &Light{
			Name:      name + "_light",
			Direction: Forward,
			Strength:  1,
		},
	}
	return sc, nil
}

// NewComposite creates the empty scene that hosts the compositor.
func NewComposite(name string, settings RenderSettings) (*Scene, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Scene{Name: name, Render: settings, Frame: 1}, nil
}

// SetFrame sets the current frame counter.
func (s *Scene) SetFrame(frame int) {
	s.Frame = frame
}

// Validate checks the single-object invariant of built scenes.
func (s *Scene) Validate() error {
	if len(s.Meshes) != 1 {
		return fmt.Errorf("%w: %s has %d meshes", ErrInvalidScene, s.Name, len(s.Meshes))
	}
	if s.Camera == nil || s.Light == nil {
		return fmt.Errorf("%w: %s is missing its camera or light", ErrInvalidScene, s.Name)
	}
	if !s.Render.Transparent {
		return fmt.Errorf("%w: %s film is not transparent", ErrInvalidScene, s.Name)
	}
	for _, m := range s.Meshes {
		if m.Material == nil || m.Material.Graph == nil {
			return fmt.Errorf("%w: %s has no material", ErrInvalidScene, m.Name)
		}
		if err := m.Material.Graph.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidScene, m.Name, err)
		}
	}
	return nil
}

// ResetPositions moves every mesh back to its base location.
func (s *Scene) ResetPositions() {
	for _, m := range s.Meshes {
		m.Location = m.Base
	}
}
