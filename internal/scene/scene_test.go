package scene

import (
	"errors"
	"testing"

	"github.com/ivlev/scenecomp/internal/shader"
	"gopkg.in/yaml.v3"
)

func TestBuildAllShapes(t *testing.T) {
	settings := DefaultRenderSettings()
	settings.Devices = DeviceConfig{
		Compute: DeviceCUDA,
		Devices: []Device{
			{Name: "cpu", Type: DeviceCPU},
			{Name: "gpu0", Type: DeviceCUDA},
		},
	}

	for _, kind := range ShapeKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			sc, err := Build("scene_"+kind.String(), kind, Vec3{1, 2, -20}, RGBA{0, 1, 0, 1}, settings)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if err := sc.Validate(); err != nil {
				t.Fatalf("Validate failed: %v", err)
			}

			if len(sc.Meshes) != 1 {
				t.Fatalf("Expected 1 mesh, got %d", len(sc.Meshes))
			}
			if sc.Camera.Location != (Vec3{}) || sc.Camera.Forward != Forward {
				t.Errorf("Camera should sit at the origin facing -Z, got %+v", sc.Camera)
			}
			if sc.Light.Location != (Vec3{}) {
				t.Errorf("Light should sit at the origin, got %+v", sc.Light.Location)
			}
			if !sc.Render.Transparent {
				t.Error("Expected transparent film")
			}
			if got := len(sc.Render.Devices.Active()); got != 2 {
				t.Errorf("Expected all 2 devices enabled, got %d", got)
			}

			g := sc.Meshes[0].Material.Graph
			if g.Count(shader.Output) != 1 {
				t.Errorf("Expected 1 output node, got %d", g.Count(shader.Output))
			}
			if len(g.TopLevelMixes()) != 1 {
				t.Errorf("Expected 1 top-level mix, got %d", len(g.TopLevelMixes()))
			}
			if !g.Frozen() {
				t.Error("Material graph should be frozen")
			}
		})
	}
}

func TestBuildDoesNotShareCameraOrLight(t *testing.T) {
	settings := DefaultRenderSettings()
	a, _ := Build("a", Cube, Vec3{}, RGBA{1, 0, 0, 1}, settings)
	b, _ := Build("b", Cube, Vec3{}, RGBA{1, 0, 0, 1}, settings)
	if a.Camera == b.Camera || a.Light == b.Light {
		t.Error("Scenes must own their camera and light")
	}
}

type floatParam struct {
	node   shader.NodeType
	socket string
	want   float64
}

func TestRecipes(t *testing.T) {
	tests := []struct {
		kind   ShapeKind
		nodes  []shader.NodeType
		fac    float64
		params []floatParam
	}{
		{Sphere, []shader.NodeType{shader.Diffuse, shader.Glossy, shader.Fresnel}, -1, []floatParam{
			{shader.Glossy, "Roughness", 0.1},
			{shader.Fresnel, "IOR", 1.45},
		}},
		{Cube, []shader.NodeType{shader.Emission, shader.Principled}, 0.5, []floatParam{
			{shader.Emission, "Strength", 2},
			{shader.Principled, "Roughness", 0.3},
		}},
		{Cone, []shader.NodeType{shader.Glass, shader.Subsurface}, 0.4, []floatParam{
			{shader.Glass, "Roughness", 0.2},
			{shader.Glass, "IOR", 1.5},
			{shader.Subsurface, "Scale", 0.1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			mat, err := newMaterial("m", tt.kind, RGBA{0, 0, 1, 1})
			if err != nil {
				t.Fatalf("newMaterial failed: %v", err)
			}
			for _, nt := range tt.nodes {
				if mat.Graph.Count(nt) != 1 {
					t.Errorf("Expected one %s node", nt)
				}
			}
			mix := mat.Graph.TopLevelMixes()[0]
			fac := mix.Input("Fac")
			if tt.fac < 0 {
				if !fac.Linked() || fac.Link.From.Type != shader.Fresnel {
					t.Error("Sphere mix factor should be driven by a Fresnel node")
				}
			} else if fac.Float != tt.fac {
				t.Errorf("Expected mix factor %.1f, got %.1f", tt.fac, fac.Float)
			}

			for _, p := range tt.params {
				var found bool
				for _, n := range mat.Graph.Nodes() {
					if n.Type != p.node {
						continue
					}
					found = true
					if got := n.Input(p.socket).Float; got != p.want {
						t.Errorf("%s.%s = %g, want %g", p.node, p.socket, got, p.want)
					}
				}
				if !found {
					t.Errorf("No %s node for %s", p.node, p.socket)
				}
			}
		})
	}
}

func TestUnknownShape(t *testing.T) {
	if _, err := ParseShapeKind("torus"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Expected ErrUnknownShape, got %v", err)
	}
	if _, err := Build("x", ShapeKind(42), Vec3{}, RGBA{}, DefaultRenderSettings()); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Expected ErrUnknownShape from Build, got %v", err)
	}
	if _, err := Build("", Cube, Vec3{}, RGBA{}, DefaultRenderSettings()); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
}

func TestParseShapeKind(t *testing.T) {
	for _, s := range []string{"cube", "Sphere", " CONE "} {
		if _, err := ParseShapeKind(s); err != nil {
			t.Errorf("ParseShapeKind(%q): %v", s, err)
		}
	}
}

func TestShapeKindYAML(t *testing.T) {
	var v struct {
		Shape ShapeKind `yaml:"shape"`
	}
	if err := yaml.Unmarshal([]byte("shape: cone\n"), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.Shape != Cone {
		t.Errorf("Expected cone, got %v", v.Shape)
	}
	if err := yaml.Unmarshal([]byte("shape: torus\n"), &v); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Expected ErrUnknownShape, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, _ := Build("a", Sphere, Vec3{}, RGBA{}, DefaultRenderSettings())
	b, _ := Build("b", Cube, Vec3{}, RGBA{}, DefaultRenderSettings())
	if err := r.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(a); !errors.Is(err, ErrDuplicateScene) {
		t.Errorf("Expected ErrDuplicateScene, got %v", err)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Unexpected order: %v", names)
	}
}

func TestResolution(t *testing.T) {
	s := RenderSettings{Width: 1920, Height: 1080, Percentage: 50}
	w, h := s.Resolution()
	if w != 960 || h != 540 {
		t.Errorf("Expected 960x540, got %dx%d", w, h)
	}
}
