package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/widget"
)

// pointsPerInch converts diagram units (treated as points) to the inches
// graphviz sizes nodes in.
const pointsPerInch = 72.0

// RenderImage renders a laid-out graph as a PNG image using graphviz.
// Node sizes come from the computed boundaries; routing is left to dot.
func RenderImage(g *graph.Graph, title string) ([]byte, error) {
	ctx := context.Background()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	gvGraph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer gvGraph.Close()

	gvGraph.SetRankDir(cgraph.TBRank)
	if title != "" {
		gvGraph.SetLabel(title)
	}

	gvNodes := make(map[string]*cgraph.Node)
	for _, n := range cards(g) {
		gvNode, nErr := gvGraph.CreateNodeByName(n.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", n.ID, nErr)
		}
		gvNode.SetLabel(firstLine(n.Label))
		gvNode.SetWidth(n.Boundary.Width / pointsPerInch)
		gvNode.SetHeight(n.Boundary.Height / pointsPerInch)
		applyNodeStyle(gvNode, n)
		gvNodes[n.ID] = gvNode
	}

	j := newJunctions(g)
	vertex := func(id string) (*cgraph.Node, error) {
		if v, ok := gvNodes[id]; ok {
			return v, nil
		}
		v, vErr := gvGraph.CreateNodeByName(id)
		if vErr != nil {
			return nil, fmt.Errorf("diagram: create junction %s: %w", id, vErr)
		}
		v.SetLabel("")
		v.SetShape(cgraph.PointShape)
		gvNodes[id] = v
		return v, nil
	}

	for _, e := range g.Edges {
		fromID, toID := j.endpoints(e)
		from, fErr := vertex(fromID)
		if fErr != nil {
			return nil, fErr
		}
		to, tErr := vertex(toID)
		if tErr != nil {
			return nil, tErr
		}
		gvEdge, eErr := gvGraph.CreateEdgeByName(e.ID, from, to)
		if eErr != nil {
			return nil, fmt.Errorf("diagram: create edge %s: %w", e.ID, eErr)
		}
		if e.Label != "" {
			gvEdge.SetLabel(e.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, gvGraph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz attributes based on widget and state.
func applyNodeStyle(gvNode *cgraph.Node, n graph.Node) {
	switch n.Widget {
	case widget.ConditionNode, widget.ChoiceDiamond:
		gvNode.SetShape(cgraph.DiamondShape)
	case widget.LoopHeader, widget.LoopPageHeader:
		gvNode.SetShape(cgraph.HexagonShape)
	case widget.PromptCard:
		gvNode.SetShape(cgraph.EllipseShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	switch {
	case n.Diagnostic != "":
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case n.Disabled:
		gvNode.SetStyle(cgraph.DashedNodeStyle)
		gvNode.SetFontColor("#888888")
	}
}
