// Package boundary computes the rectangular footprint of graph nodes and
// aggregates child footprints into container footprints.
package boundary

// Boundary is the intrinsic size of a node before placement. AxisX/AxisY
// locate the connection anchor inside the rectangle: AxisX is the column
// vertical connectors attach to, AxisY the row side connectors leave from.
type Boundary struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	AxisX  float64 `json:"axisX"`
	AxisY  float64 `json:"axisY"`
}

// New returns a boundary anchored at its center.
func New(width, height float64) Boundary {
	return Boundary{Width: width, Height: height, AxisX: width / 2, AxisY: height / 2}
}

// LeftExtent is the distance from the left edge to the axis column.
func (b Boundary) LeftExtent() float64 { return b.AxisX }

// RightExtent is the distance from the axis column to the right edge.
func (b Boundary) RightExtent() float64 { return b.Width - b.AxisX }

// IsZero reports whether the boundary has no area.
func (b Boundary) IsZero() bool { return b.Width == 0 && b.Height == 0 }
