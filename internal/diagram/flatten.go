package diagram

import "github.com/rendis/flowlayout/internal/graph"

// Flatten is the second pass: it walks the nested layout depth first,
// threading the accumulated origin down, and emits every node and edge in
// absolute coordinates. Nodes come out in pre-order; a container precedes
// its contents.
func Flatten(l *graph.GraphLayout) *graph.Graph {
	g := &graph.Graph{Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	if l != nil {
		flatten(g, l, graph.Point{})
	}
	return g
}

func flatten(g *graph.Graph, l *graph.GraphLayout, origin graph.Point) {
	for _, e := range l.Edges {
		g.Edges = append(g.Edges, e.Shift(origin))
	}
	l.Nodes.Each(func(_ string, n *graph.GraphNode) {
		abs := origin.Add(n.Offset)
		g.Nodes = append(g.Nodes, graph.Node{
			ID:         n.ID,
			Path:       n.Path,
			Kind:       n.Kind,
			Widget:     n.Widget,
			Label:      n.Label,
			X:          abs.X,
			Y:          abs.Y,
			Boundary:   n.Boundary,
			Disabled:   n.Disabled,
			Comment:    n.Comment,
			Diagnostic: n.Diagnostic,
			Data:       n.Data,
		})
		if n.Layout != nil {
			flatten(g, n.Layout, abs)
		}
	})
}
