package diagram

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/layout"
	"github.com/rendis/flowlayout/internal/logging"
	"github.com/rendis/flowlayout/internal/transform"
	"github.com/rendis/flowlayout/internal/widget"
)

// Builder turns dialog action trees into positioned graphs. It is immutable
// once built and safe for concurrent use.
type Builder struct {
	registry *dialog.Registry
	metrics  boundary.Metrics
	checker  ConditionChecker
	observer Observer
	logger   *slog.Logger
}

// NewBuilder creates a builder with the default registry and metrics.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		registry: dialog.DefaultRegistry(),
		metrics:  boundary.DefaultMetrics(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Metrics returns the geometry the builder lays out with.
func (b *Builder) Metrics() boundary.Metrics {
	return b.metrics
}

// Build lays out root and flattens the result.
func (b *Builder) Build(root any) *graph.Graph {
	return b.BuildContext(context.Background(), root)
}

// BuildContext is Build with log correlation taken from ctx. A run ID is
// generated for every call.
func (b *Builder) BuildContext(ctx context.Context, root any) *graph.Graph {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.LogWith(ctx, b.logger)

	l, pass := b.layout(root, logger)
	g := Flatten(l)

	stats := Stats{
		RunID:     runID,
		DialogID:  logging.DialogID(ctx),
		Duration:  time.Since(start),
		Nodes:     len(g.Nodes),
		Edges:     len(g.Edges),
		Fallbacks: pass.Fallbacks(),
		Width:     l.Boundary.Width,
		Height:    l.Boundary.Height,
	}
	logger.Debug("layout complete",
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
		slog.Int("fallbacks", stats.Fallbacks),
		slog.Duration("duration", stats.Duration))
	if b.observer != nil {
		b.observer.ObserveLayout(stats)
	}
	return g
}

// Layout runs the first pass only: every subtree laid out in its own local
// frame. Roots may be an action object, an array of actions or a bare
// dialog reference string.
func (b *Builder) Layout(root any) *graph.GraphLayout {
	l, _ := b.layout(root, b.logger)
	return l
}

func (b *Builder) layout(root any, logger *slog.Logger) (*graph.GraphLayout, *transform.Pass) {
	p := transform.NewPass(b.registry, logger)
	n := rootNode(p, root)

	if l := b.construct(p, n); l != nil {
		return l, p
	}
	// A leaf root is a trivial layout holding the single card.
	leaf := b.leaf(p, n)
	leaf.Place(0, 0)
	l := &graph.GraphLayout{Boundary: leaf.Boundary}
	l.Nodes.Set(layout.RoleSteps, leaf)
	return l, p
}

func rootNode(p *transform.Pass, root any) *graph.IndexedNode {
	switch v := root.(type) {
	case map[string]any:
		return graph.NewRoot(v)
	case []any:
		return graph.NewRoot(map[string]any{
			dialog.FieldKind:    dialog.KindSequence,
			dialog.FieldActions: v,
		})
	case string:
		return graph.NewRoot(dialog.BeginDialog(v))
	default:
		p.Fallback(graph.RootID, "unsupported root")
		return graph.NewRoot(nil)
	}
}

// node builds the GraphNode for n, recursing into constructs.
func (b *Builder) node(p *transform.Pass, n *graph.IndexedNode) *graph.GraphNode {
	l := b.construct(p, n)
	if l == nil {
		return b.leaf(p, n)
	}
	gn := b.base(p, n, containerWidget(p.Construct(n)))
	gn.Boundary = l.Boundary
	gn.Layout = l
	return gn
}

// construct dispatches on the closed construct set. It returns nil for
// leaves.
func (b *Builder) construct(p *transform.Pass, n *graph.IndexedNode) *graph.GraphLayout {
	switch p.Construct(n) {
	case dialog.ConstructStepGroup:
		steps := transform.StepGroup(p, n)
		return layout.Sequence(b.metrics, n.ID, b.nodes(p, steps))

	case dialog.ConstructIfElse:
		parts := transform.IfElse(p, n)
		cond := b.header(p, parts.Condition, widget.ConditionNode, conditionLabel(n.Data))
		b.diagnose(cond, dialog.String(n.Data, dialog.FieldCondition))
		return layout.IfElse(b.metrics, n.ID, cond, b.branch(p, parts.True), b.branch(p, parts.False))

	case dialog.ConstructSwitch:
		parts := transform.SwitchCase(p, n)
		labels := parts.Labels()
		cond := b.header(p, parts.Condition, widget.ConditionNode, conditionLabel(n.Data))
		b.diagnose(cond, dialog.String(n.Data, dialog.FieldCondition))
		choice := b.synthetic(p, parts.Choice, widget.ChoiceDiamond, strings.Join(labels, " | "),
			boundary.Content{Branches: len(labels)})
		branches := make([]*graph.GraphNode, len(parts.Branches))
		for i, br := range parts.Branches {
			branches[i] = b.branch(p, br)
		}
		return layout.SwitchCase(b.metrics, n.ID, cond, choice, branches, labels)

	case dialog.ConstructForeach, dialog.ConstructForeachPage:
		parts := transform.Foreach(p, n)
		w, verb := widget.LoopHeader, "Each item in "
		if parts.Paged {
			w, verb = widget.LoopPageHeader, "Each page in "
		}
		header := b.header(p, parts.Header, w, verb+dialog.String(n.Data, dialog.FieldItems))
		body := b.branch(p, parts.Body)
		begin := b.synthetic(p, parts.Begin, widget.LoopIndicator, "", boundary.Content{})
		end := b.synthetic(p, parts.End, widget.LoopIndicator, "", boundary.Content{})
		return layout.Foreach(b.metrics, header, body, begin, end)

	default:
		return nil
	}
}

func (b *Builder) nodes(p *transform.Pass, steps []*graph.IndexedNode) []*graph.GraphNode {
	out := make([]*graph.GraphNode, len(steps))
	for i, s := range steps {
		out[i] = b.node(p, s)
	}
	return out
}

// branch lays out a nested step list produced by a decomposition.
func (b *Builder) branch(p *transform.Pass, br transform.Branch) *graph.GraphNode {
	l := layout.Sequence(b.metrics, br.Node.ID, b.nodes(p, transform.Steps(p, br)))
	gn := b.base(p, br.Node, widget.StepGroup)
	gn.Label = br.Label
	gn.Boundary = l.Boundary
	gn.Layout = l
	return gn
}

// leaf sizes a single card. Unknown kinds end up here too.
func (b *Builder) leaf(p *transform.Pass, n *graph.IndexedNode) *graph.GraphNode {
	kind := p.Kind(n)
	if n.Data != nil && !b.registry.Known(kind) {
		p.Fallback(n.ID, "unknown kind", "kind", kind)
	}
	gn := b.base(p, n, b.registry.Widget(kind))
	gn.Boundary = b.metrics.Compute(gn.Widget, boundary.Content{TextLength: len(dialog.Text(n.Data))})
	return gn
}

// header builds a card standing for its owner action (condition, loop
// header). It carries the owner's designer comment.
func (b *Builder) header(p *transform.Pass, n *graph.IndexedNode, w widget.Kind, label string) *graph.GraphNode {
	gn := b.synthetic(p, n, w, label, boundary.Content{TextLength: len(label)})
	_, gn.Comment = dialog.Designer(n.Data)
	return gn
}

func (b *Builder) synthetic(p *transform.Pass, n *graph.IndexedNode, w widget.Kind, label string, c boundary.Content) *graph.GraphNode {
	gn := b.base(p, n, w)
	gn.Label = label
	gn.Comment = ""
	gn.Boundary = b.metrics.Compute(w, c)
	return gn
}

func (b *Builder) base(p *transform.Pass, n *graph.IndexedNode, w widget.Kind) *graph.GraphNode {
	_, comment := dialog.Designer(n.Data)
	return &graph.GraphNode{
		ID:       n.ID,
		Path:     n.Path,
		Kind:     p.Kind(n),
		Widget:   w,
		Label:    dialog.Label(n.Data),
		Data:     n.Data,
		Disabled: p.Disabled(n),
		Comment:  comment,
	}
}

func (b *Builder) diagnose(n *graph.GraphNode, expression string) {
	if b.checker == nil || expression == "" {
		return
	}
	if err := b.checker.Check(expression); err != nil {
		n.Diagnostic = err.Error()
	}
}

func conditionLabel(data map[string]any) string {
	if c := dialog.String(data, dialog.FieldCondition); c != "" {
		return c
	}
	return dialog.Label(data)
}

func containerWidget(c dialog.Construct) widget.Kind {
	switch c {
	case dialog.ConstructIfElse:
		return widget.IfElse
	case dialog.ConstructSwitch:
		return widget.SwitchCase
	case dialog.ConstructForeach, dialog.ConstructForeachPage:
		return widget.Foreach
	default:
		return widget.StepGroup
	}
}
