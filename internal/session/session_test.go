package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/scenecomp/internal/scene"
)

func buildProject(t *testing.T) (*scene.Scene, []*scene.Scene) {
	t.Helper()
	settings := scene.DefaultRenderSettings()
	settings.Width, settings.Height = 640, 360
	settings.Devices = scene.DeviceConfig{
		Compute: scene.DeviceCPU,
		Devices: []scene.Device{{Name: "cpu", Type: scene.DeviceCPU, Cores: 8}},
	}

	sphere, err := scene.Build("sphere", scene.Sphere, scene.Vec3{X: -5, Y: 2, Z: -20}, scene.RGBA{G: 1, A: 1}, settings)
	if err != nil {
		t.Fatal(err)
	}
	cone, err := scene.Build("cone", scene.Cone, scene.Vec3{Y: -2, Z: -20}, scene.RGBA{B: 1, A: 1}, settings)
	if err != nil {
		t.Fatal(err)
	}
	cone.Meshes[0].Location = scene.Vec3{X: 0.25, Y: -2, Z: -20}

	comp, _ := scene.NewComposite("composite", settings)
	comp.SetFrame(4)
	return comp, []*scene.Scene{sphere, cone}
}

func TestSaveLoadRestore(t *testing.T) {
	comp, scenes := buildProject(t)
	snap := Capture(comp, scenes, []string{"sphere", "cone"}, true)
	snap.Background = &Background{Path: "plate.pdf", Page: 2}
	snap.BackgroundColor = &scene.RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}

	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := Save(snap, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != snap.ID || loaded.Frame != 4 || !loaded.Viewer {
		t.Errorf("Unexpected snapshot header: %+v", loaded)
	}
	if loaded.Background == nil || loaded.Background.Page != 2 {
		t.Errorf("Background lost: %+v", loaded.Background)
	}
	if loaded.BackgroundColor == nil || loaded.BackgroundColor.G != 0.5 {
		t.Errorf("Background color lost: %+v", loaded.BackgroundColor)
	}
	if len(loaded.Devices.Devices) != 1 || !loaded.Devices.Devices[0].Use {
		t.Errorf("Devices lost: %+v", loaded.Devices)
	}

	reg, restored, err := loaded.Restore()
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Name != "composite" || restored.Frame != 4 {
		t.Errorf("Unexpected composite %s frame %d", restored.Name, restored.Frame)
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "sphere" || got[1] != "cone" {
		t.Fatalf("Unexpected scenes %v", got)
	}

	cone, _ := reg.Get("cone")
	if err := cone.Validate(); err != nil {
		t.Errorf("Restored scene invalid: %v", err)
	}
	m := cone.Meshes[0]
	if m.Shape != scene.Cone || m.Location.X != 0.25 || m.Base.X != 0 || m.Material.Color.B != 1 {
		t.Errorf("Unexpected restored mesh %+v", m)
	}
	if cone.Frame != 4 || cone.Render.Width != 640 {
		t.Errorf("Unexpected restored settings: frame %d width %d", cone.Frame, cone.Render.Width)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"version", "id: 2b1c0a5e-4c33-4e4e-9a59-3d2b7e1f0c11\nversion: \"9\"\n", ErrVersion},
		{"shape", "id: 2b1c0a5e-4c33-4e4e-9a59-3d2b7e1f0c11\nversion: \"1\"\nscenes:\n  - name: x\n    shape: torus\n", scene.ErrUnknownShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.yaml")
			os.WriteFile(path, []byte(tt.data), 0644)
			if _, err := Load(path); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRestoreUnknownLayer(t *testing.T) {
	comp, scenes := buildProject(t)
	snap := Capture(comp, scenes, []string{"sphere", "cube"}, false)
	if _, _, err := snap.Restore(); err == nil {
		t.Error("Expected error for layer without scene")
	}
}
