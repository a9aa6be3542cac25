// Package transform decomposes dialog actions into the indexed child nodes
// each construct is laid out from. Transformers never touch the action JSON:
// everything they learn about a node goes into the pass's annotation map.
package transform

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/graph"
)

// Roles of synthetic sub-nodes.
const (
	RoleCondition = "condition"
	RoleChoice    = "choice"
	RoleHeader    = "header"
	RoleLoopBegin = "loopBegin"
	RoleLoopEnd   = "loopEnd"
)

// Pass is the state of one layout pass.
type Pass struct {
	Registry    *dialog.Registry
	Annotations graph.Annotations
	Logger      *slog.Logger

	fallbacks int
}

// NewPass starts a pass. A nil registry uses the default one and a nil
// logger discards.
func NewPass(reg *dialog.Registry, logger *slog.Logger) *Pass {
	if reg == nil {
		reg = dialog.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pass{
		Registry:    reg,
		Annotations: graph.Annotations{},
		Logger:      logger,
	}
}

// Kind returns the effective kind of n: the synthesized kind when one was
// recorded, otherwise its $kind.
func (p *Pass) Kind(n *graph.IndexedNode) string {
	if k := p.Annotations.Get(n.ID).Kind; k != "" {
		return k
	}
	return dialog.Kind(n.Data)
}

// Construct resolves n against the registry. Synthetic nodes are leaves.
func (p *Pass) Construct(n *graph.IndexedNode) dialog.Construct {
	if k := p.Annotations.Get(n.ID).Kind; k != "" {
		if k == dialog.KindSequence {
			return dialog.ConstructStepGroup
		}
		return dialog.ConstructLeaf
	}
	return p.Registry.Construct(dialog.Kind(n.Data))
}

// Disabled reports whether n is disabled statically or by inheritance.
func (p *Pass) Disabled(n *graph.IndexedNode) bool {
	if p.Annotations.Get(n.ID).Disabled {
		return true
	}
	// Synthetic nodes share their owner's data but only inherit.
	if n.ID != n.Path && n.ID != graph.RootID {
		return false
	}
	return dialog.StaticDisabled(n.Data)
}

// Fallbacks counts the data-shape problems absorbed during the pass:
// unknown kinds and malformed structural fields.
func (p *Pass) Fallbacks() int {
	return p.fallbacks
}

// Fallback records one absorbed data-shape problem.
func (p *Pass) Fallback(id, reason string, args ...any) {
	p.fallbacks++
	p.Logger.Debug("layout fallback", append([]any{"node_id", id, "reason", reason}, args...)...)
}

// inherit applies disabled propagation from owner to its direct children.
func (p *Pass) inherit(owner *graph.IndexedNode, children ...*graph.IndexedNode) {
	if !p.Disabled(owner) {
		return
	}
	for _, c := range children {
		p.Annotations.MarkDisabled(c.ID)
	}
}

// synthetic creates a sub-node of owner tagged with role.
func (p *Pass) synthetic(owner *graph.IndexedNode, role string) *graph.IndexedNode {
	n := graph.NewSyntheticNode(owner, role)
	p.Annotations.Synthesize(n.ID, role)
	return n
}

// branch creates a step-list container addressed by path.
func (p *Pass) branch(path string, data map[string]any) *graph.IndexedNode {
	n := graph.NewIndexedNode(path, data)
	p.Annotations.Synthesize(n.ID, dialog.KindSequence)
	return n
}

// list reads a structural list field, logging a malformed value.
func (p *Pass) list(owner *graph.IndexedNode, field string) []any {
	items, malformed := dialog.List(owner.Data, field)
	if malformed {
		p.Fallback(owner.ID, "malformed field", "field", field)
	}
	return items
}

// Join appends a field segment to a path.
func Join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

// Index addresses element i of the list at path.
func Index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
