package diagram

import (
	"strings"

	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/layout"
	"github.com/rendis/flowlayout/internal/transform"
	"github.com/rendis/flowlayout/internal/widget"
)

// junctions maps edge endpoints onto drawable vertices for the
// topology-based renderers. In the geometric output a container id names
// either its entry (top) or its exit (merge point) depending on the edge;
// graph renderers need two distinct vertices, and loop markers collapse
// onto the body they wrap.
type junctions struct {
	nodes map[string]graph.Node
	heads map[string]bool
	used  map[string]bool
	order []string
}

func newJunctions(g *graph.Graph) *junctions {
	j := &junctions{
		nodes: make(map[string]graph.Node, len(g.Nodes)),
		heads: map[string]bool{},
		used:  map[string]bool{},
	}
	for _, n := range g.Nodes {
		j.nodes[n.ID] = n
	}
	for _, e := range g.Edges {
		if edgePrefix(e) == layout.EdgeSeqHead {
			j.heads[e.From] = true
		}
	}
	return j
}

// ownerExit lists the prefixes of edges that end on their own container's
// merge point.
var ownerExit = map[string]bool{
	layout.EdgeSeqTail:          true,
	layout.EdgeIfMerge:          true,
	layout.EdgeSwitchMerge:      true,
	layout.EdgeSwitchBottomline: true,
}

func edgePrefix(e graph.Edge) string {
	if i := strings.Index(e.ID, "/"); i >= 0 {
		return e.ID[:i]
	}
	return ""
}

// endpoints resolves both ends of e.
func (j *junctions) endpoints(e graph.Edge) (from, to string) {
	prefix := edgePrefix(e)
	return j.resolve(e.From, prefix != layout.EdgeSeqHead), j.resolve(e.To, ownerExit[prefix])
}

// resolve returns the vertex standing for id: the card itself, or a
// container's entry or exit.
func (j *junctions) resolve(id string, exit bool) string {
	if n, ok := j.nodes[id]; ok {
		switch {
		case n.Widget == widget.LoopIndicator:
			return j.resolve(loopBody(n.Path), strings.HasSuffix(id, "#"+transform.RoleLoopEnd))
		case !n.Widget.Container():
			return id
		}
	}
	// Loops are entered through the header and left through the body.
	if end, ok := j.nodes[id+"#"+transform.RoleLoopEnd]; ok {
		if exit {
			return j.resolve(loopBody(end.Path), true)
		}
		return id + "#" + transform.RoleHeader
	}
	// Branching constructs are entered through the condition header.
	if _, ok := j.nodes[id+"#"+transform.RoleCondition]; ok {
		if exit {
			return j.junction(id + "_out")
		}
		return id + "#" + transform.RoleCondition
	}
	// An empty step group is a single pass-through point.
	if exit && j.heads[id] {
		return j.junction(id + "_out")
	}
	return j.junction(id + "_in")
}

func loopBody(path string) string {
	return transform.Join(path, dialog.FieldActions)
}

func (j *junctions) junction(id string) string {
	if !j.used[id] {
		j.used[id] = true
		j.order = append(j.order, id)
	}
	return id
}

// cards returns the nodes drawn as shapes, in output order.
func cards(g *graph.Graph) []graph.Node {
	var out []graph.Node
	for _, n := range g.Nodes {
		if n.Widget.Container() || n.Widget.Marker() {
			continue
		}
		out = append(out, n)
	}
	return out
}

// isLoopBack reports whether e closes a loop.
func isLoopBack(e graph.Edge) bool {
	return edgePrefix(e) == layout.EdgeLoopBack
}
