package boundary

import "github.com/rendis/flowlayout/internal/widget"

// Metrics holds every geometry constant used by the calculator and the
// layouters. All values are in diagram units.
type Metrics struct {
	NodeWidth  float64 `json:"node_width" yaml:"node_width" validate:"gt=0"`
	NodeHeight float64 `json:"node_height" yaml:"node_height" validate:"gt=0"`

	// Text size classes: bodies longer than ShortText (then MediumText)
	// characters grow the card by TextStep per class.
	ShortText  int     `json:"short_text" yaml:"short_text" validate:"gt=0"`
	MediumText int     `json:"medium_text" yaml:"medium_text" validate:"gtfield=ShortText"`
	TextStep   float64 `json:"text_step" yaml:"text_step" validate:"gte=0"`

	DiamondWidth  float64 `json:"diamond_width" yaml:"diamond_width" validate:"gt=0"`
	DiamondHeight float64 `json:"diamond_height" yaml:"diamond_height" validate:"gt=0"`

	ElementGap float64 `json:"element_gap" yaml:"element_gap" validate:"gt=0"`
	BranchGapX float64 `json:"branch_gap_x" yaml:"branch_gap_x" validate:"gt=0"`
	BranchGapY float64 `json:"branch_gap_y" yaml:"branch_gap_y" validate:"gt=0"`

	// EmptyNeighborGap widens the switch gutter next to an empty branch so
	// neighbouring case labels do not collide.
	EmptyNeighborGap float64 `json:"empty_neighbor_gap" yaml:"empty_neighbor_gap" validate:"gte=0"`

	MinBranchWidth  float64 `json:"min_branch_width" yaml:"min_branch_width" validate:"gt=0"`
	MinBranchHeight float64 `json:"min_branch_height" yaml:"min_branch_height" validate:"gt=0"`

	// LoopEdgeMargin is the fixed distance between a loop body and its
	// back-edge column.
	LoopEdgeMargin float64 `json:"loop_edge_margin" yaml:"loop_edge_margin" validate:"gt=0"`
}

// DefaultMetrics returns the stock geometry.
func DefaultMetrics() Metrics {
	return Metrics{
		NodeWidth:        180,
		NodeHeight:       50,
		ShortText:        40,
		MediumText:       120,
		TextStep:         16,
		DiamondWidth:     50,
		DiamondHeight:    20,
		ElementGap:       30,
		BranchGapX:       50,
		BranchGapY:       20,
		EmptyNeighborGap: 30,
		MinBranchWidth:   40,
		MinBranchHeight:  20,
		LoopEdgeMargin:   20,
	}
}

// Content is the part of a node's payload that influences its size.
type Content struct {
	TextLength int
	Branches   int
}

// TextClass buckets a text length: 0 short, 1 medium, 2 long.
func (m Metrics) TextClass(n int) int {
	switch {
	case n <= m.ShortText:
		return 0
	case n <= m.MediumText:
		return 1
	default:
		return 2
	}
}

// Compute returns the intrinsic boundary of a leaf-like widget. It is pure:
// the same widget and content always produce the same boundary. Container
// widgets are aggregated from their children instead; asking for one here
// yields the minimum slot.
func (m Metrics) Compute(w widget.Kind, c Content) Boundary {
	switch w {
	case widget.LoopIndicator:
		return Boundary{}
	case widget.ChoiceDiamond:
		return New(m.DiamondWidth, m.DiamondHeight)
	case widget.StepGroup, widget.IfElse, widget.SwitchCase, widget.Foreach:
		return m.MinSlot()
	default:
		return New(m.NodeWidth, m.NodeHeight+float64(m.TextClass(c.TextLength))*m.TextStep)
	}
}

// MinSlot is the footprint reserved for a container with nothing in it.
func (m Metrics) MinSlot() Boundary {
	return Boundary{
		Width:  m.MinBranchWidth,
		Height: m.MinBranchHeight,
		AxisX:  m.MinBranchWidth / 2,
	}
}
