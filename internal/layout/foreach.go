package layout

import (
	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/graph"
)

// Foreach puts the loop header above the body and pins the two zero-size
// loop markers to the body's top and bottom on a column LoopEdgeMargin to
// the left of the body. The back-edge runs up that column.
func Foreach(m boundary.Metrics, header, body, begin, end *graph.GraphNode) *graph.GraphLayout {
	mustNodes("foreach", header, body, begin, end)

	b := m.Foreach(header.Boundary, body.Boundary)
	axis := b.AxisX
	bodyTop := header.Boundary.Height + m.BranchGapY

	placeOnAxis(header, axis, 0)
	placeOnAxis(body, axis, bodyTop)
	lineX := body.Offset.X - m.LoopEdgeMargin
	begin.Place(lineX, bodyTop)
	end.Place(lineX, bottom(body))

	l := &graph.GraphLayout{Boundary: b}
	l.Nodes.Set(RoleHeader, header)
	l.Nodes.Set(RoleBody, body)
	l.Nodes.Set(RoleLoopBegin, begin)
	l.Nodes.Set(RoleLoopEnd, end)

	l.Edges = []graph.Edge{
		graph.NewEdge(EdgeLoopBody, header.ID, body.ID, graph.Down, axis, header.Boundary.Height, m.BranchGapY),
		graph.NewEdge(EdgeLoopBack, end.ID, begin.ID, graph.Up, lineX, bottom(body), body.Boundary.Height).Directed(),
	}
	return l
}
