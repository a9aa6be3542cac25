package layout

import (
	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/graph"
)

// Sequence stacks steps on a shared axis with ElementGap above, between
// and below them. Edges run from the container top into the first step,
// between consecutive steps, and from the last step to the container
// bottom. An empty sequence is a minimum slot with no edges.
func Sequence(m boundary.Metrics, id string, steps []*graph.GraphNode) *graph.GraphLayout {
	mustNodes("sequence", steps...)

	l := &graph.GraphLayout{Boundary: m.Sequence(boundaries(steps))}
	if len(steps) == 0 {
		return l
	}
	axis := l.Boundary.AxisX

	y := m.ElementGap
	for _, s := range steps {
		placeOnAxis(s, axis, y)
		y += s.Boundary.Height + m.ElementGap
	}
	l.Nodes.Set(RoleSteps, steps...)

	l.Edges = append(l.Edges, graph.NewEdge(EdgeSeqHead, id, steps[0].ID, graph.Down, axis, 0, m.ElementGap))
	for i := 1; i < len(steps); i++ {
		prev := steps[i-1]
		l.Edges = append(l.Edges, graph.NewEdge(EdgeSeq, prev.ID, steps[i].ID, graph.Down, axis, bottom(prev), m.ElementGap))
	}
	last := steps[len(steps)-1]
	l.Edges = append(l.Edges, graph.NewEdge(EdgeSeqTail, last.ID, id, graph.Down, axis, bottom(last), m.ElementGap))
	return l
}
