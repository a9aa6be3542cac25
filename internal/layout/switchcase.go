package layout

import (
	"fmt"

	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/graph"
)

// SwitchCase puts the condition header and the choice node on the
// container axis and lays the branches out left to right below them, the
// first branch on the axis. labels[i] labels the drop into branches[i].
//
// The two horizontal rails (baseline under the choice node, bottom line at
// the container bottom) are only drawn when there is more than one branch.
// Both are keyed on the last branch, which is always the default.
func SwitchCase(m boundary.Metrics, id string, cond, choice *graph.GraphNode, branches []*graph.GraphNode, labels []string) *graph.GraphLayout {
	mustNodes("switch", cond, choice)
	mustNodes("switch branch", branches...)
	if len(branches) == 0 {
		panic("layout: switch without branches")
	}
	if len(labels) != len(branches) {
		panic(fmt.Sprintf("layout: switch has %d branches but %d labels", len(branches), len(labels)))
	}

	bs := boundaries(branches)
	empty := make([]bool, len(branches))
	for i, br := range branches {
		empty[i] = br.Empty()
	}

	b := m.SwitchCase(cond.Boundary, choice.Boundary, bs, empty)
	axis := b.AxisX
	axes := m.SwitchAxes(bs, empty)

	placeOnAxis(cond, axis, 0)
	choiceTop := cond.Boundary.Height + m.BranchGapY
	placeOnAxis(choice, axis, choiceTop)
	baseY := bottom(choice)
	top := baseY + m.BranchGapY
	bottomY := b.Height
	for i, br := range branches {
		placeOnAxis(br, axis+axes[i], top)
	}

	l := &graph.GraphLayout{Boundary: b}
	l.Nodes.Set(RoleCondition, cond)
	l.Nodes.Set(RoleChoice, choice)
	l.Nodes.Set(RoleBranches, branches...)

	last := branches[len(branches)-1]
	span := axes[len(axes)-1]

	l.Edges = append(l.Edges, graph.NewEdge(EdgeSwitchChoice, cond.ID, choice.ID, graph.Down, axis, cond.Boundary.Height, m.BranchGapY))
	if len(branches) > 1 {
		l.Edges = append(l.Edges, graph.NewEdge(EdgeSwitchBaseline, choice.ID, last.ID, graph.Right, axis, baseY, span))
	}
	for i, br := range branches {
		x := axis + axes[i]
		l.Edges = append(l.Edges,
			graph.NewEdge(EdgeSwitchCase, choice.ID, br.ID, graph.Down, x, baseY, m.BranchGapY).WithLabel(labels[i]),
			graph.NewEdge(EdgeSwitchMerge, br.ID, id, graph.Down, x, bottom(br), bottomY-bottom(br)),
		)
	}
	if len(branches) > 1 {
		l.Edges = append(l.Edges, graph.NewEdge(EdgeSwitchBottomline, last.ID, id, graph.Left, axis+span, bottomY, span))
	}
	return l
}
