package graph

// Direction is the heading of an edge segment.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Turn is the optional second segment of an elbow connector.
type Turn struct {
	Direction Direction `json:"direction"`
	Length    float64   `json:"length"`
}

// EdgeOptions carries rendering hints.
type EdgeOptions struct {
	Directed bool  `json:"directed,omitempty"`
	Dashed   bool  `json:"dashed,omitempty"`
	Turn     *Turn `json:"turn,omitempty"`
}

// Edge is a connector starting at (X, Y) and running Length units along
// Direction, optionally followed by a Turn. From and To name the nodes it
// connects; ID is derived from them.
type Edge struct {
	ID        string       `json:"id"`
	From      string       `json:"from"`
	To        string       `json:"to"`
	Direction Direction    `json:"direction"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Length    float64      `json:"length"`
	Label     string       `json:"label,omitempty"`
	Options   *EdgeOptions `json:"options,omitempty"`
}

// EdgeID derives an edge identifier from a role prefix and its endpoints.
// Unchanged endpoints always produce the same id.
func EdgeID(prefix, from, to string) string {
	return prefix + "/" + from + "->" + to
}

// NewEdge creates a straight edge.
func NewEdge(prefix, from, to string, dir Direction, x, y, length float64) Edge {
	return Edge{
		ID:        EdgeID(prefix, from, to),
		From:      from,
		To:        to,
		Direction: dir,
		X:         x,
		Y:         y,
		Length:    length,
	}
}

// WithLabel returns e labelled.
func (e Edge) WithLabel(label string) Edge {
	e.Label = label
	return e
}

// WithTurn returns e bent into an elbow.
func (e Edge) WithTurn(dir Direction, length float64) Edge {
	e.Options = e.options()
	e.Options.Turn = &Turn{Direction: dir, Length: length}
	return e
}

// Directed returns e with an arrow head.
func (e Edge) Directed() Edge {
	e.Options = e.options()
	e.Options.Directed = true
	return e
}

func (e Edge) options() *EdgeOptions {
	if e.Options == nil {
		return &EdgeOptions{}
	}
	o := *e.Options
	return &o
}

// Start returns the first point of the edge.
func (e Edge) Start() Point {
	return Point{X: e.X, Y: e.Y}
}

// Bend returns the end of the first segment, which is the corner of an
// elbow edge and the end of a straight one.
func (e Edge) Bend() Point {
	return step(e.Start(), e.Direction, e.Length)
}

// End returns the last point of the edge.
func (e Edge) End() Point {
	p := e.Bend()
	if e.Options != nil && e.Options.Turn != nil {
		p = step(p, e.Options.Turn.Direction, e.Options.Turn.Length)
	}
	return p
}

// Shift returns e moved by o.
func (e Edge) Shift(o Point) Edge {
	e.X += o.X
	e.Y += o.Y
	return e
}

func step(p Point, dir Direction, length float64) Point {
	switch dir {
	case Up:
		p.Y -= length
	case Down:
		p.Y += length
	case Left:
		p.X -= length
	case Right:
		p.X += length
	}
	return p
}
