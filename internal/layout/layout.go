// Package layout places already-sized children inside their container and
// wires them with edges. Every layouter works in the container's local
// frame: (0, 0) is its top-left corner and the returned boundary's AxisX is
// the column the container is entered and left through.
package layout

import (
	"fmt"

	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/graph"
)

// Node roles inside a GraphLayout.
const (
	RoleSteps     = "steps"
	RoleCondition = "condition"
	RoleChoice    = "choice"
	RoleTrue      = "true"
	RoleFalse     = "false"
	RoleBranches  = "branches"
	RoleHeader    = "header"
	RoleBody      = "body"
	RoleLoopBegin = "loopBegin"
	RoleLoopEnd   = "loopEnd"
)

// Edge prefixes.
const (
	EdgeSeqHead          = "seq-head"
	EdgeSeq              = "seq"
	EdgeSeqTail          = "seq-tail"
	EdgeIfTrue           = "if-true"
	EdgeIfFalse          = "if-false"
	EdgeIfMerge          = "if-merge"
	EdgeSwitchChoice     = "switch-choice"
	EdgeSwitchBaseline   = "switch-baseline"
	EdgeSwitchCase       = "switch-case"
	EdgeSwitchMerge      = "switch-merge"
	EdgeSwitchBottomline = "switch-bottomline"
	EdgeLoopBody         = "loop-body"
	EdgeLoopBack         = "loop-back"
)

// Labels on the if/else branch edges.
const (
	LabelTrue  = "True"
	LabelFalse = "False"
)

func mustNodes(construct string, nodes ...*graph.GraphNode) {
	for i, n := range nodes {
		if n == nil {
			panic(fmt.Sprintf("layout: %s child %d is nil", construct, i))
		}
	}
}

func boundaries(nodes []*graph.GraphNode) []boundary.Boundary {
	out := make([]boundary.Boundary, len(nodes))
	for i, n := range nodes {
		out[i] = n.Boundary
	}
	return out
}

// placeOnAxis puts n so that its axis column lands on x.
func placeOnAxis(n *graph.GraphNode, x, y float64) {
	n.Place(x-n.Boundary.AxisX, y)
}

func bottom(n *graph.GraphNode) float64 {
	return n.Offset.Y + n.Boundary.Height
}
