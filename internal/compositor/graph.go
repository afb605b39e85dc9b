// Package compositor builds and evaluates the compositing node graph that
// flattens independently rendered scenes into one image.
//
// Nodes can only be wired to nodes that already exist, so the creation order
// of a graph is always a valid evaluation order.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	ErrNoSources     = errors.New("compositor: no sources")
	ErrForeignHandle = errors.New("compositor: handle belongs to another graph")
	ErrUnknownNode   = errors.New("compositor: unknown node")
	ErrNotImage      = errors.New("compositor: node has no image output")
	ErrSinkWired     = errors.New("compositor: sink already wired")
	ErrNoComposite   = errors.New("compositor: composite output is not wired")
	ErrMissingLayer  = errors.New("compositor: missing render layer")
	ErrUnsized       = errors.New("compositor: output has no size")
)

// Kind is the type of a compositor node.
type Kind int

const (
	RenderLayer Kind = iota
	ImageInput
	ColorInput
	AlphaOver
	Composite
	Viewer
)

func (k Kind) String() string {
	switch k {
	case RenderLayer:
		return "render_layer"
	case ImageInput:
		return "image"
	case ColorInput:
		return "rgb"
	case AlphaOver:
		return "alpha_over"
	case Composite:
		return "composite"
	case Viewer:
		return "viewer"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one compositor node. Inputs holds node ids; for AlphaOver the first
// is the background and the second the foreground.
type Node struct {
	ID     int
	Kind   Kind
	Name   string
	Scene  string
	Inputs []int

	image image.Image
	color color.Color
}

// Handle refers to a node of a specific graph.
type Handle struct {
	graph *Graph
	id    int
}

func (h Handle) ID() int {
	return h.id
}

// Graph is a compositor node graph.
type Graph struct {
	nodes     []*Node
	composite int
	viewer    int
	// foreground is the blend result before the solid backdrop, -1 without one
	foreground int
}

func NewGraph() *Graph {
	return &Graph{composite: -1, viewer: -1, foreground: -1}
}

func (g *Graph) add(n *Node) Handle {
	n.ID = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return Handle{graph: g, id: n.ID}
}

func (g *Graph) node(h Handle) (*Node, error) {
	if h.graph != g {
		return nil, ErrForeignHandle
	}
	if h.id < 0 || h.id >= len(g.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, h.id)
	}
	return g.nodes[h.id], nil
}

// AddRenderLayer adds a source node fed by the render of the named scene.
func (g *Graph) AddRenderLayer(sceneName string) Handle {
	return g.add(&Node{Kind: RenderLayer, Name: "RenderLayers." + sceneName, Scene: sceneName})
}

// AddImage adds a source node holding a fixed image, such as a background plate.
func (g *Graph) AddImage(name string, img image.Image) Handle {
	return g.add(&Node{Kind: ImageInput, Name: name, image: img})
}

// AddColor adds a source node of one flat color. It takes its size from the
// node it is blended with.
func (g *Graph) AddColor(name string, c color.Color) Handle {
	return g.add(&Node{Kind: ColorInput, Name: name, color: c})
}

// AlphaOver adds a blend of fg over bg. Both inputs must already exist.
func (g *Graph) AlphaOver(bg, fg Handle) (Handle, error) {
	for _, h := range []Handle{bg, fg} {
		n, err := g.node(h)
		if err != nil {
			return Handle{}, err
		}
		if n.Kind == Composite || n.Kind == Viewer {
			return Handle{}, fmt.Errorf("%w: %s", ErrNotImage, n.Name)
		}
	}
	name := fmt.Sprintf("AlphaOver.%03d", len(g.Blends()))
	return g.add(&Node{Kind: AlphaOver, Name: name, Inputs: []int{bg.id, fg.id}}), nil
}

// SetComposite wires h into the composite output sink.
func (g *Graph) SetComposite(h Handle) error {
	return g.sink(h, Composite, &g.composite)
}

// SetViewer wires h into the preview sink.
func (g *Graph) SetViewer(h Handle) error {
	return g.sink(h, Viewer, &g.viewer)
}

func (g *Graph) sink(h Handle, kind Kind, slot *int) error {
	src, err := g.node(h)
	if err != nil {
		return err
	}
	if src.Kind == Composite || src.Kind == Viewer {
		return fmt.Errorf("%w: %s", ErrNotImage, src.Name)
	}
	if *slot >= 0 {
		return fmt.Errorf("%w: %s", ErrSinkWired, kind)
	}
	sh := g.add(&Node{Kind: kind, Name: kind.String(), Inputs: []int{src.ID}})
	*slot = sh.id
	return nil
}

// Nodes returns the nodes in construction order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Blends returns the alpha-over nodes in construction order.
func (g *Graph) Blends() []*Node {
	return g.ofKind(AlphaOver)
}

// Layers returns the scene names of the render layer nodes in construction order.
func (g *Graph) Layers() []string {
	var names []string
	for _, n := range g.ofKind(RenderLayer) {
		names = append(names, n.Scene)
	}
	return names
}

func (g *Graph) ofKind(k Kind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// HasViewer reports whether the preview sink is wired.
func (g *Graph) HasViewer() bool {
	return g.viewer >= 0
}

// Consumers returns the ids of nodes reading the output of node id.
func (g *Graph) Consumers(id int) []int {
	var out []int
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			if in == id {
				out = append(out, n.ID)
			}
		}
	}
	return out
}

// Validate checks that the composite sink is wired and every input refers to
// an earlier node.
func (g *Graph) Validate() error {
	if g.composite < 0 {
		return ErrNoComposite
	}
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			if in < 0 || in >= n.ID {
				return fmt.Errorf("%w: %s reads node %d", ErrUnknownNode, n.Name, in)
			}
		}
		if n.Kind == AlphaOver && len(n.Inputs) != 2 {
			return fmt.Errorf("compositor: %s has %d inputs", n.Name, len(n.Inputs))
		}
	}
	return nil
}

// Options controls Chain.
type Options struct {
	// Background is composited underneath every scene when set.
	Background image.Image
	// BackgroundColor is blended under the finished chain when set.
	BackgroundColor color.Color
	Viewer          bool
}

// Chain builds one render layer per scene and blends them in order: each
// alpha-over takes the previous result as background and the next scene as
// foreground. A background color adds one last blend of the chain over it.
func Chain(scenes []string, opts Options) (*Graph, error) {
	if len(scenes) == 0 {
		return nil, ErrNoSources
	}
	g := NewGraph()

	var acc Handle
	first := 0
	if opts.Background != nil {
		acc = g.AddImage("Background", opts.Background)
	} else {
		acc = g.AddRenderLayer(scenes[0])
		first = 1
	}

	for _, name := range scenes[first:] {
		layer := g.AddRenderLayer(name)
		blend, err := g.AlphaOver(acc, layer)
		if err != nil {
			return nil, err
		}
		acc = blend
	}

	if opts.BackgroundColor != nil {
		g.foreground = acc.id
		backdrop := g.AddColor("RGB", opts.BackgroundColor)
		blend, err := g.AlphaOver(backdrop, acc)
		if err != nil {
			return nil, err
		}
		acc = blend
	}

	if err := g.SetComposite(acc); err != nil {
		return nil, err
	}
	if opts.Viewer {
		if err := g.SetViewer(acc); err != nil {
			return nil, err
		}
	}
	return g, nil
}
