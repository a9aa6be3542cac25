package graph

import (
	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/widget"
)

// Node is the render-facing form of a GraphNode with an absolute position.
type Node struct {
	ID         string            `json:"id"`
	Path       string            `json:"path"`
	Kind       string            `json:"kind,omitempty"`
	Widget     widget.Kind       `json:"widget"`
	Label      string            `json:"label,omitempty"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Boundary   boundary.Boundary `json:"boundary"`
	Disabled   bool              `json:"disabled,omitempty"`
	Comment    string            `json:"comment,omitempty"`
	Diagnostic string            `json:"diagnostic,omitempty"`
	Data       map[string]any    `json:"data,omitempty"`
}

// Graph is the flat output of a layout pass: every node with an absolute
// position and every edge in the same coordinate space.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node looks up a node by ID.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodesByWidget returns nodes of the given widget kind in output order.
func (g *Graph) NodesByWidget(w widget.Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Widget == w {
			out = append(out, n)
		}
	}
	return out
}

// Edge looks up an edge by ID.
func (g *Graph) Edge(id string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// Bounds returns the smallest rectangle enclosing every node.
func (g *Graph) Bounds() (width, height float64) {
	for _, n := range g.Nodes {
		width = max(width, n.X+n.Boundary.Width)
		height = max(height, n.Y+n.Boundary.Height)
	}
	for _, e := range g.Edges {
		for _, p := range []Point{e.Start(), e.End()} {
			width = max(width, p.X)
			height = max(height, p.Y)
		}
	}
	return width, height
}
