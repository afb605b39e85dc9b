package scene

import (
	"fmt"

	"github.com/ivlev/scenecomp/internal/shader"
)

// Material is a named shader graph.
type Material struct {
	Name  string
	Color RGBA
	Graph *shader.Graph
}

// recipe accumulates the first error so node wiring reads top to bottom.
type recipe struct {
	g   *shader.Graph
	err error
}

func (r *recipe) add(t shader.NodeType) *shader.Node {
	if r.err != nil {
		return nil
	}
	n, err := r.g.Add(t)
	r.err = err
	return n
}

func (r *recipe) color(n *shader.Node, socket string, c RGBA) {
	if r.err != nil {
		return
	}
	r.err = n.SetColor(socket, shader.Color{c.R, c.G, c.B, c.A})
}

func (r *recipe) float(n *shader.Node, socket string, v float64) {
	if r.err != nil {
		return
	}
	r.err = n.SetFloat(socket, v)
}

func (r *recipe) link(from, to *shader.Node, socket string) {
	if r.err != nil {
		return
	}
	r.err = r.g.Link(from, to, socket)
}

// newMaterial builds the fixed shader recipe of each shape kind.
func newMaterial(name string, kind ShapeKind, c RGBA) (*Material, error) {
	r := &recipe{g: shader.New()}
	mix := r.add(shader.Mix)
	out := r.add(shader.Output)

	switch kind {
	case Sphere:
		diffuse := r.add(shader.Diffuse)
		glossy := r.add(shader.Glossy)
		fresnel := r.add(shader.Fresnel)
		r.color(diffuse, "Color", c)
		r.color(glossy, "Color", c)
		r.float(glossy, "Roughness", 0.1)
		r.float(fresnel, "IOR", 1.45)
		r.link(fresnel, mix, "Fac")
		r.link(diffuse, mix, "Shader1")
		r.link(glossy, mix, "Shader2")
	case Cube:
		emission := r.add(shader.Emission)
		principled := r.add(shader.Principled)
		r.color(emission, "Color", c)
		r.float(emission, "Strength", 2)
		r.color(principled, "Base Color", c)
		r.float(principled, "Roughness", 0.3)
		r.float(mix, "Fac", 0.5)
		r.link(emission, mix, "Shader1")
		r.link(principled, mix, "Shader2")
	case Cone:
		glass := r.add(shader.Glass)
		subsurface := r.add(shader.Subsurface)
		r.color(glass, "Color", c)
		r.float(glass, "Roughness", 0.2)
		r.float(glass, "IOR", 1.5)
		r.color(subsurface, "Color", c)
		r.float(subsurface, "Scale", 0.1)
		r.float(mix, "Fac", 0.4)
		r.link(glass, mix, "Shader1")
		r.link(subsurface, mix, "Shader2")
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownShape, kind)
	}

	r.link(mix, out, "Surface")
	if r.err != nil {
		return nil, r.err
	}
	r.g.Freeze()
	return &Material{Name: name, Color: c, Graph: r.g}, nil
}
