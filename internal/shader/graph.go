// Package shader models material node graphs: typed nodes with named input
// sockets joined by output-to-input links. A graph is built once, frozen and
// then only read.
package shader

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownNodeType = errors.New("shader: unknown node type")
	ErrUnknownSocket   = errors.New("shader: unknown socket")
	ErrSocketKind      = errors.New("shader: socket kind mismatch")
	ErrAlreadyLinked   = errors.New("shader: input already linked")
	ErrCycle           = errors.New("shader: link would create a cycle")
	ErrForeignNode     = errors.New("shader: node belongs to another graph")
	ErrFrozen          = errors.New("shader: graph is frozen")
	ErrNoOutput        = errors.New("shader: graph has no output node")
	ErrInvalid         = errors.New("shader: invalid graph")
)

// Link connects the output of From to the named input of To.
type Link struct {
	From     *Node
	To       *Node
	ToSocket string
}

// Graph is a directed acyclic graph of shader nodes.
type Graph struct {
	nodes  []*Node
	links  []*Link
	frozen bool
}

func New() *Graph {
	return &Graph{}
}

// Add appends a node of the given type with default input values.
func (g *Graph) Add(t NodeType) (*Node, error) {
	if err := g.mutable(); err != nil {
		return nil, err
	}
	spec, ok := nodeSpecs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}

	n := &Node{
		ID:         len(g.nodes),
		Type:       t,
		output:     spec.output,
		outputKind: spec.outputKind,
		graph:      g,
	}
	for _, in := range spec.inputs {
		in := in
		n.Inputs = append(n.Inputs, &in)
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// Link wires the output of from into the input socket of to.
func (g *Graph) Link(from, to *Node, socket string) error {
	if err := g.mutable(); err != nil {
		return err
	}
	if from.graph != g || to.graph != g {
		return ErrForeignNode
	}
	if from.output == "" {
		return fmt.Errorf("%w: %s has no output", ErrUnknownSocket, from)
	}
	in := to.Input(socket)
	if in == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSocket, to, socket)
	}
	if in.Kind != from.outputKind {
		return fmt.Errorf("%w: %s.%s (%s) <- %s (%s)", ErrSocketKind, to, socket, in.Kind, from, from.outputKind)
	}
	if in.Linked() {
		return fmt.Errorf("%w: %s.%s", ErrAlreadyLinked, to, socket)
	}
	if from == to || g.reaches(to, from) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, from, to)
	}

	l := &Link{From: from, To: to, ToSocket: socket}
	in.Link = l
	g.links = append(g.links, l)
	return nil
}

// reaches reports whether b is downstream of a.
func (g *Graph) reaches(a, b *Node) bool {
	seen := map[*Node]bool{}
	stack := []*Node{a}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == b {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, l := range g.links {
			if l.From == n {
				stack = append(stack, l.To)
			}
		}
	}
	return false
}

// Freeze makes the graph immutable.
func (g *Graph) Freeze() {
	g.frozen = true
}

func (g *Graph) Frozen() bool {
	return g.frozen
}

func (g *Graph) mutable() error {
	if g.frozen {
		return ErrFrozen
	}
	return nil
}

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Links returns the links in creation order.
func (g *Graph) Links() []*Link {
	return append([]*Link(nil), g.links...)
}

// Count returns the number of nodes of type t.
func (g *Graph) Count(t NodeType) int {
	count := 0
	for _, n := range g.nodes {
		if n.Type == t {
			count++
		}
	}
	return count
}

// Output returns the single output node.
func (g *Graph) Output() (*Node, error) {
	var out *Node
	for _, n := range g.nodes {
		if n.Type != Output {
			continue
		}
		if out != nil {
			return nil, fmt.Errorf("%w: more than one output node", ErrInvalid)
		}
		out = n
	}
	if out == nil {
		return nil, ErrNoOutput
	}
	return out, nil
}

// TopLevelMixes returns the mix nodes whose result is not consumed by another mix.
func (g *Graph) TopLevelMixes() []*Node {
	var mixes []*Node
	for _, n := range g.nodes {
		if n.Type != Mix {
			continue
		}
		nested := false
		for _, l := range g.links {
			if l.From == n && l.To.Type == Mix {
				nested = true
				break
			}
		}
		if !nested {
			mixes = append(mixes, n)
		}
	}
	return mixes
}

// Validate checks that the graph has exactly one output node whose surface
// is driven by the only top-level mix node.
func (g *Graph) Validate() error {
	out, err := g.Output()
	if err != nil {
		return err
	}
	surface := out.Input("Surface")
	if !surface.Linked() {
		return fmt.Errorf("%w: output surface is not linked", ErrInvalid)
	}

	mixes := g.TopLevelMixes()
	if len(mixes) != 1 {
		return fmt.Errorf("%w: %d top-level mix nodes", ErrInvalid, len(mixes))
	}
	if surface.Link.From != mixes[0] {
		return fmt.Errorf("%w: output is driven by %s, not %s", ErrInvalid, surface.Link.From, mixes[0])
	}
	return nil
}

// Evaluate reduces the graph to a flat surface color as seen head-on.
func (g *Graph) Evaluate() (Color, error) {
	out, err := g.Output()
	if err != nil {
		return Color{}, err
	}
	return evalShader(out.Input("Surface")), nil
}

func evalShader(in *Input) Color {
	if !in.Linked() {
		return Color{}
	}
	n := in.Link.From
	switch n.Type {
	case Diffuse, Glossy, Glass, Subsurface:
		return n.Input("Color").Color
	case Principled:
		c := n.Input("Base Color").Color
		c[3] *= evalFloat(n.Input("Alpha"))
		return c
	case Emission:
		c := n.Input("Color").Color
		s := evalFloat(n.Input("Strength"))
		for i := 0; i < 3; i++ {
			c[i] = math.Min(1, c[i]*s)
		}
		return c
	case Mix:
		fac := clamp01(evalFloat(n.Input("Fac")))
		a := evalShader(n.Input("Shader1"))
		b := evalShader(n.Input("Shader2"))
		var c Color
		for i := range c {
			c[i] = a[i]*(1-fac) + b[i]*fac
		}
		return c
	}
	return Color{}
}

func evalFloat(in *Input) float64 {
	if !in.Linked() {
		return in.Float
	}
	n := in.Link.From
	if n.Type == Fresnel {
		// reflectance at normal incidence
		ior := evalFloat(n.Input("IOR"))
		r := (ior - 1) / (ior + 1)
		return r * r
	}
	return 0
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
