package graph

import (
	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/widget"
)

// IndexedNode pairs a stable identifier with a read-only view of the action
// JSON it was decomposed from. Path is the source address; ID equals Path
// except for synthetic sub-nodes, which append a "#role" suffix, and the
// root, whose empty path is named RootID.
type IndexedNode struct {
	ID   string
	Path string
	Data map[string]any
}

// RootID names the root container.
const RootID = "root"

// NewRoot wraps the layout root.
func NewRoot(data map[string]any) *IndexedNode {
	return &IndexedNode{ID: RootID, Data: data}
}

// NewIndexedNode creates a node addressed by path.
func NewIndexedNode(path string, data map[string]any) *IndexedNode {
	return &IndexedNode{ID: path, Path: path, Data: data}
}

// NewSyntheticNode creates a sub-node of owner, such as a condition header
// or a loop marker. It shares the owner's path and data.
func NewSyntheticNode(owner *IndexedNode, role string) *IndexedNode {
	return &IndexedNode{ID: owner.ID + "#" + role, Path: owner.Path, Data: owner.Data}
}

// Kind returns the raw "$kind" discriminator, or "" when absent.
func (n *IndexedNode) Kind() string {
	if n == nil || n.Data == nil {
		return ""
	}
	k, _ := n.Data["$kind"].(string)
	return k
}

// Annotation holds UI-only facts about a node that must not be written into
// the caller's action JSON.
type Annotation struct {
	Kind     string // synthesized construct kind for sub-nodes
	Disabled bool   // inherited from a statically disabled ancestor
}

// Annotations is the side table of one layout pass, keyed by node ID.
type Annotations map[string]Annotation

// Get returns the annotation for id (zero value when absent).
func (a Annotations) Get(id string) Annotation {
	return a[id]
}

// MarkDisabled records that id inherits disabled = true.
func (a Annotations) MarkDisabled(id string) {
	ann := a[id]
	ann.Disabled = true
	a[id] = ann
}

// Synthesize records the construct kind of a synthetic node.
func (a Annotations) Synthesize(id, kind string) {
	ann := a[id]
	ann.Kind = kind
	a[id] = ann
}

// Point is a position in diagram units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p shifted by o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// GraphNode is a node inside a GraphLayout. Offset is relative to the
// origin of the container that owns it and is assigned exactly once, by
// that container's layouter. Layout is set for composite nodes.
type GraphNode struct {
	ID         string
	Path       string
	Kind       string
	Widget     widget.Kind
	Label      string
	Data       map[string]any
	Disabled   bool
	Comment    string
	Diagnostic string
	Boundary   boundary.Boundary
	Offset     Point
	Layout     *GraphLayout

	placed bool
}

// Place sets the node's offset. Placing a node twice is an engine bug.
func (n *GraphNode) Place(x, y float64) {
	if n.placed {
		panic("graph: node " + n.ID + " placed twice")
	}
	n.Offset = Point{X: x, Y: y}
	n.placed = true
}

// Empty reports whether n is a container with no nodes inside.
func (n *GraphNode) Empty() bool {
	return n.Layout != nil && n.Layout.Nodes.Len() == 0
}
