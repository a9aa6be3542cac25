package boundary

// Sequence aggregates a vertical stack aligned on the shared axis column:
// a leading gap, then every step followed by a gap.
func (m Metrics) Sequence(steps []Boundary) Boundary {
	if len(steps) == 0 {
		return m.MinSlot()
	}
	var axis, right float64
	height := m.ElementGap
	for _, s := range steps {
		axis = max(axis, s.AxisX)
		right = max(right, s.RightExtent())
		height += s.Height + m.ElementGap
	}
	return Boundary{Width: axis + right, Height: height, AxisX: axis}
}

// IfElseSeparation is the horizontal distance between the true-branch axis
// and the false-branch axis. It never lets the branches overlap and keeps
// the false branch clear of the condition header.
func (m Metrics) IfElseSeparation(cond, t, f Boundary) float64 {
	return max(
		t.RightExtent()+m.BranchGapX+f.LeftExtent(),
		cond.RightExtent()+m.BranchGapX,
	)
}

// IfElse aggregates a condition header with two branches below it.
func (m Metrics) IfElse(cond, t, f Boundary) Boundary {
	axis := max(cond.AxisX, t.AxisX)
	sep := m.IfElseSeparation(cond, t, f)
	return Boundary{
		Width:  axis + max(cond.RightExtent(), t.RightExtent(), sep+f.RightExtent()),
		Height: cond.Height + m.BranchGapY + max(t.Height, f.Height) + m.BranchGapY,
		AxisX:  axis,
	}
}

// SwitchAxes returns each branch axis relative to the first branch axis.
// The gutter between two branches grows by EmptyNeighborGap when either of
// them is empty.
func (m Metrics) SwitchAxes(branches []Boundary, empty []bool) []float64 {
	axes := make([]float64, len(branches))
	for i := 1; i < len(branches); i++ {
		gap := m.BranchGapX
		if isEmpty(empty, i-1) || isEmpty(empty, i) {
			gap += m.EmptyNeighborGap
		}
		axes[i] = axes[i-1] + branches[i-1].RightExtent() + gap + branches[i].LeftExtent()
	}
	return axes
}

// SwitchCase aggregates a condition header, the choice node and the branch
// row. A switch always has at least its default branch; an empty branch
// list is treated as a single empty slot.
func (m Metrics) SwitchCase(cond, choice Boundary, branches []Boundary, empty []bool) Boundary {
	if len(branches) == 0 {
		branches = []Boundary{m.MinSlot()}
		empty = []bool{true}
	}
	axes := m.SwitchAxes(branches, empty)
	last := len(branches) - 1

	axis := max(cond.AxisX, choice.AxisX, branches[0].AxisX)
	var rowHeight float64
	for _, b := range branches {
		rowHeight = max(rowHeight, b.Height)
	}
	return Boundary{
		Width:  axis + max(cond.RightExtent(), choice.RightExtent(), axes[last]+branches[last].RightExtent()),
		Height: cond.Height + m.BranchGapY + choice.Height + m.BranchGapY + rowHeight + m.BranchGapY,
		AxisX:  axis,
	}
}

// Foreach aggregates a loop header above its body, leaving LoopEdgeMargin
// to the left of the body for the back-edge column.
func (m Metrics) Foreach(header, body Boundary) Boundary {
	axis := max(header.AxisX, m.LoopEdgeMargin+body.AxisX)
	return Boundary{
		Width:  axis + max(header.RightExtent(), body.RightExtent()),
		Height: header.Height + m.BranchGapY + body.Height,
		AxisX:  axis,
	}
}

func isEmpty(empty []bool, i int) bool {
	return i < len(empty) && empty[i]
}
