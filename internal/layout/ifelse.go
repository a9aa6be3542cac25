package layout

import (
	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/graph"
)

// IfElse puts the condition header on the container axis with the true
// branch straight below it and the false branch to its right. Both
// branches merge back on the axis at the container bottom; the trunk below
// that point belongs to the enclosing sequence.
func IfElse(m boundary.Metrics, id string, cond, t, f *graph.GraphNode) *graph.GraphLayout {
	mustNodes("if/else", cond, t, f)

	b := m.IfElse(cond.Boundary, t.Boundary, f.Boundary)
	axis := b.AxisX
	sep := m.IfElseSeparation(cond.Boundary, t.Boundary, f.Boundary)
	falseAxis := axis + sep
	top := cond.Boundary.Height + m.BranchGapY
	mergeY := b.Height

	placeOnAxis(cond, axis, 0)
	placeOnAxis(t, axis, top)
	placeOnAxis(f, falseAxis, top)

	l := &graph.GraphLayout{Boundary: b}
	l.Nodes.Set(RoleCondition, cond)
	l.Nodes.Set(RoleTrue, t)
	l.Nodes.Set(RoleFalse, f)

	exitX := axis + cond.Boundary.RightExtent()
	exitY := cond.Boundary.AxisY
	l.Edges = []graph.Edge{
		graph.NewEdge(EdgeIfTrue, cond.ID, t.ID, graph.Down, axis, cond.Boundary.Height, m.BranchGapY).
			WithLabel(LabelTrue),
		graph.NewEdge(EdgeIfFalse, cond.ID, f.ID, graph.Right, exitX, exitY, falseAxis-exitX).
			WithTurn(graph.Down, top-exitY).
			WithLabel(LabelFalse),
		graph.NewEdge(EdgeIfMerge, t.ID, id, graph.Down, axis, bottom(t), mergeY-bottom(t)),
		graph.NewEdge(EdgeIfMerge, f.ID, id, graph.Down, falseAxis, bottom(f), mergeY-bottom(f)).
			WithTurn(graph.Left, sep),
	}
	return l
}
