// Package session saves a project (scenes, compositor layout, frame and
// render settings) to YAML and restores it.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/scenecomp/internal/scene"
)

var (
	ErrSessionNotFound = errors.New("session file not found")
	ErrVersion         = errors.New("unsupported session version")
)

// Version of the snapshot layout.
const Version = "1"

// Snapshot is the on-disk project state.
type Snapshot struct {
	ID         string             `yaml:"id"`
	Version    string             `yaml:"version"`
	Saved      time.Time          `yaml:"saved"`
	Frame      int                `yaml:"frame"`
	Render     RenderSettings     `yaml:"render"`
	Devices    scene.DeviceConfig `yaml:"devices"`
	Scenes     []SceneState       `yaml:"scenes"`
	Composite  string             `yaml:"composite"`
	Order      []string           `yaml:"order"`
	Viewer     bool               `yaml:"viewer"`
	Background *Background        `yaml:"background,omitempty"`
	// BackgroundColor is the flat backdrop under the chain, absent when transparent.
	BackgroundColor *scene.RGBA `yaml:"background_color,omitempty"`
}

type RenderSettings struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	Percentage int `yaml:"percentage"`
	Samples    int `yaml:"samples"`
}

// SceneState is one contributing scene: enough to rebuild it with scene.Build.
type SceneState struct {
	Name     string          `yaml:"name"`
	Shape    scene.ShapeKind `yaml:"shape"`
	Base     scene.Vec3      `yaml:"base"`
	Location scene.Vec3      `yaml:"location"`
	Color    scene.RGBA      `yaml:"color"`
}

type Background struct {
	Path string `yaml:"path"`
	Page int    `yaml:"page"` // starts at 1
}

// Capture records the state of composite and scenes. order is the
// compositor layer order.
func Capture(composite *scene.Scene, scenes []*scene.Scene, order []string, viewer bool) *Snapshot {
	s := &Snapshot{
		ID:        uuid.NewString(),
		Version:   Version,
		Order:     append([]string(nil), order...),
		Viewer:    viewer,
		Composite: composite.Name,
		Frame:     composite.Frame,
		Render: RenderSettings{
			Width:      composite.Render.Width,
			Height:     composite.Render.Height,
			Percentage: composite.Render.Percentage,
			Samples:    composite.Render.Samples,
		},
	}
	for _, sc := range scenes {
		for _, m := range sc.Meshes {
			st := SceneState{Name: sc.Name, Shape: m.Shape, Base: m.Base, Location: m.Location}
			if m.Material != nil {
				st.Color = m.Material.Color
			}
			s.Scenes = append(s.Scenes, st)
		}
		if len(sc.Render.Devices.Devices) > 0 {
			s.Devices = sc.Render.Devices
		}
	}
	return s
}

// Save writes the snapshot to a YAML file
func Save(s *Snapshot, path string) error {
	s.Saved = time.Now().UTC().Truncate(time.Second)
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Load reads a snapshot from a YAML file
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, path)
		}
		return nil, err
	}

	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session %s: %w", path, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %q", ErrVersion, s.Version)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		return nil, fmt.Errorf("session %s: bad id: %w", path, err)
	}

	return &s, nil
}

// Restore rebuilds the scenes of s, with every mesh back at its saved
// location and frame, and the composite scene.
func (s *Snapshot) Restore() (*scene.Registry, *scene.Scene, error) {
	settings := scene.DefaultRenderSettings()
	settings.Width, settings.Height = s.Render.Width, s.Render.Height
	settings.Percentage, settings.Samples = s.Render.Percentage, s.Render.Samples
	settings.Devices = s.Devices

	reg := scene.NewRegistry()
	for _, st := range s.Scenes {
		sc, err := scene.Build(st.Name, st.Shape, st.Base, st.Color, settings)
		if err != nil {
			return nil, nil, err
		}
		sc.Meshes[0].Location = st.Location
		sc.SetFrame(s.Frame)
		if err := reg.Add(sc); err != nil {
			return nil, nil, err
		}
	}

	for _, name := range s.Order {
		if _, ok := reg.Get(name); !ok {
			return nil, nil, fmt.Errorf("session: compositor layer %q has no scene", name)
		}
	}

	composite, err := scene.NewComposite(s.Composite, settings)
	if err != nil {
		return nil, nil, err
	}
	composite.SetFrame(s.Frame)
	return reg, composite, nil
}
