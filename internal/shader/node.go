package shader

import "fmt"

// NodeType identifies a shader node.
type NodeType string

const (
	Diffuse    NodeType = "diffuse"
	Glossy     NodeType = "glossy"
	Emission   NodeType = "emission"
	Principled NodeType = "principled"
	Glass      NodeType = "glass"
	Subsurface NodeType = "subsurface"
	Fresnel    NodeType = "fresnel"
	Mix        NodeType = "mix"
	Output     NodeType = "output"
)

// SocketKind is the value type carried by a socket.
type SocketKind int

const (
	KindFloat SocketKind = iota
	KindColor
	KindShader
)

func (k SocketKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindColor:
		return "color"
	case KindShader:
		return "shader"
	}
	return fmt.Sprintf("SocketKind(%d)", int(k))
}

// Color is a linear RGBA value in 0-1.
type Color [4]float64

// Input is a named input socket. Unlinked inputs use their default value.
type Input struct {
	Name  string
	Kind  SocketKind
	Float float64
	Color Color
	Link  *Link
}

// Linked reports whether something drives this input.
func (in *Input) Linked() bool {
	return in.Link != nil
}

// Node is a single node of a shader graph.
type Node struct {
	ID     int
	Type   NodeType
	Inputs []*Input

	output     string
	outputKind SocketKind
	graph      *Graph
}

// OutputName returns the name of the node's output socket, empty for the output node.
func (n *Node) OutputName() string {
	return n.output
}

// Input returns the input socket with the given name or nil.
func (n *Node) Input(name string) *Input {
	for _, in := range n.Inputs {
		if in.Name == name {
			return in
		}
	}
	return nil
}

// SetFloat sets the default value of a float input.
func (n *Node) SetFloat(name string, v float64) error {
	if err := n.graph.mutable(); err != nil {
		return err
	}
	in := n.Input(name)
	if in == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSocket, n.Type, name)
	}
	if in.Kind != KindFloat {
		return fmt.Errorf("%w: %s.%s is %s", ErrSocketKind, n.Type, name, in.Kind)
	}
	in.Float = v
	return nil
}

// SetColor sets the default value of a color input.
func (n *Node) SetColor(name string, c Color) error {
	if err := n.graph.mutable(); err != nil {
		return err
	}
	in := n.Input(name)
	if in == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSocket, n.Type, name)
	}
	if in.Kind != KindColor {
		return fmt.Errorf("%w: %s.%s is %s", ErrSocketKind, n.Type, name, in.Kind)
	}
	in.Color = c
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.Type, n.ID)
}

type nodeSpec struct {
	output     string
	outputKind SocketKind
	inputs     []Input
}

var white = Color{1, 1, 1, 1}
var grey = Color{0.8, 0.8, 0.8, 1}

var nodeSpecs = map[NodeType]nodeSpec{
	Diffuse: {"BSDF", KindShader, []Input{
		{Name: "Color", Kind: KindColor, Color: grey},
		{Name: "Roughness", Kind: KindFloat},
	}},
	Glossy: {"BSDF", KindShader, []Input{
		{Name: "Color", Kind: KindColor, Color: white},
		{Name: "Roughness", Kind: KindFloat, Float: 0.5},
	}},
	Emission: {"Emission", KindShader, []Input{
		{Name: "Color", Kind: KindColor, Color: white},
		{Name: "Strength", Kind: KindFloat, Float: 1},
	}},
	Principled: {"BSDF", KindShader, []Input{
		{Name: "Base Color", Kind: KindColor, Color: grey},
		{Name: "Metallic", Kind: KindFloat},
		{Name: "Roughness", Kind: KindFloat, Float: 0.5},
		{Name: "Alpha", Kind: KindFloat, Float: 1},
	}},
	Glass: {"BSDF", KindShader, []Input{
		{Name: "Color", Kind: KindColor, Color: white},
		{Name: "Roughness", Kind: KindFloat},
		{Name: "IOR", Kind: KindFloat, Float: 1.45},
	}},
	Subsurface: {"BSSRDF", KindShader, []Input{
		{Name: "Color", Kind: KindColor, Color: grey},
		{Name: "Scale", Kind: KindFloat, Float: 1},
	}},
	Fresnel: {"Fac", KindFloat, []Input{
		{Name: "IOR", Kind: KindFloat, Float: 1.45},
	}},
	Mix: {"Shader", KindShader, []Input{
		{Name: "Fac", Kind: KindFloat, Float: 0.5},
		{Name: "Shader1", Kind: KindShader},
		{Name: "Shader2", Kind: KindShader},
	}},
	Output: {"", KindShader, []Input{
		{Name: "Surface", Kind: KindShader},
	}},
}
