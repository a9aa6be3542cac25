package diagram

import (
	"fmt"
	"math"
	"strings"

	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/widget"
)

// Diagram units per character cell.
const (
	asciiCellX = 10.0
	asciiCellY = 10.0
)

// RenderASCII draws a laid-out graph onto a character canvas straight from
// its absolute geometry: every card at its position, every edge along its
// segments.
func RenderASCII(g *graph.Graph, title string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n\n", title))
	}

	w, h := g.Bounds()
	c := newCanvas(col(w)+1, row(h)+1)
	for _, e := range g.Edges {
		c.edge(e)
	}
	for _, n := range cards(g) {
		c.box(n)
	}
	b.WriteString(c.String())
	return b.String()
}

func col(x float64) int { return int(math.Round(x / asciiCellX)) }
func row(y float64) int { return int(math.Round(y / asciiCellY)) }

// canvas is a grid of runes addressed [row][col].
type canvas struct {
	cells [][]rune
}

func newCanvas(width, height int) *canvas {
	cells := make([][]rune, height)
	for i := range cells {
		cells[i] = []rune(strings.Repeat(" ", width))
	}
	return &canvas{cells: cells}
}

func (c *canvas) set(r, k int, ch rune) {
	if r < 0 || r >= len(c.cells) || k < 0 || k >= len(c.cells[r]) {
		return
	}
	c.cells[r][k] = ch
}

func (c *canvas) get(r, k int) rune {
	if r < 0 || r >= len(c.cells) || k < 0 || k >= len(c.cells[r]) {
		return ' '
	}
	return c.cells[r][k]
}

// line draws one straight segment, merging crossings.
func (c *canvas) line(from, to graph.Point) {
	r0, k0, r1, k1 := row(from.Y), col(from.X), row(to.Y), col(to.X)
	if k0 == k1 {
		for r := min(r0, r1); r <= max(r0, r1); r++ {
			c.set(r, k0, merge(c.get(r, k0), '│'))
		}
		return
	}
	for k := min(k0, k1); k <= max(k0, k1); k++ {
		c.set(r0, k, merge(c.get(r0, k), '─'))
	}
}

func merge(old, ch rune) rune {
	if old == ' ' || old == ch {
		return ch
	}
	if (old == '│' && ch == '─') || (old == '─' && ch == '│') || old == '┼' {
		return '┼'
	}
	return ch
}

func (c *canvas) edge(e graph.Edge) {
	start, mid := e.Start(), e.Bend()
	c.line(start, mid)
	end := e.End()
	if end != mid {
		c.line(mid, end)
	}

	last := e.Direction
	if e.Options != nil && e.Options.Turn != nil {
		last = e.Options.Turn.Direction
	}
	if last == graph.Down || (e.Options != nil && e.Options.Directed) {
		c.set(row(end.Y), col(end.X), arrow(last))
	}
	if e.Label != "" {
		at := mid
		if last == graph.Down && end == mid {
			at = start
		}
		c.text(row(at.Y)+1, col(at.X)+1, e.Label)
	}
}

func arrow(d graph.Direction) rune {
	switch d {
	case graph.Up:
		return '▲'
	case graph.Left:
		return '◀'
	case graph.Right:
		return '▶'
	default:
		return '▼'
	}
}

func (c *canvas) text(r, k int, s string) {
	for i, ch := range []rune(s) {
		c.set(r, k+i, ch)
	}
}

// box draws a card. Disabled cards get a dashed border; condition and
// choice nodes are marked with a diamond.
func (c *canvas) box(n graph.Node) {
	r0, k0 := row(n.Y), col(n.X)
	r1, k1 := row(n.Y+n.Boundary.Height), col(n.X+n.Boundary.Width)-1
	if r1 <= r0 {
		r1 = r0 + 1
	}
	if k1 <= k0+1 {
		k1 = k0 + 2
	}

	hz, vt := '─', '│'
	if n.Disabled {
		hz, vt = '╌', '╎'
	}
	for k := k0 + 1; k < k1; k++ {
		c.set(r0, k, hz)
		c.set(r1, k, hz)
	}
	for r := r0 + 1; r < r1; r++ {
		c.set(r, k0, vt)
		c.set(r, k1, vt)
		for k := k0 + 1; k < k1; k++ {
			c.set(r, k, ' ')
		}
	}
	c.set(r0, k0, '┌')
	c.set(r0, k1, '┐')
	c.set(r1, k0, '└')
	c.set(r1, k1, '┘')

	label := firstLine(n.Label)
	switch n.Widget {
	case widget.ConditionNode, widget.ChoiceDiamond:
		label = "◇ " + label
	case widget.LoopHeader, widget.LoopPageHeader:
		label = "↻ " + label
	}
	if n.Diagnostic != "" {
		label = "! " + label
	}
	room := k1 - k0 - 2
	runes := []rune(label)
	if len(runes) > room {
		if room > 1 {
			runes = append(runes[:room-1], '…')
		} else {
			runes = runes[:max(room, 0)]
		}
	}
	if r0+1 < r1 {
		c.text(r0+1, k0+1, string(runes))
	}
}

func (c *canvas) String() string {
	lines := make([]string, len(c.cells))
	for i, r := range c.cells {
		lines[i] = strings.TrimRight(string(r), " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
