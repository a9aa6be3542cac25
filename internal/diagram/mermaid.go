package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/widget"
)

// RenderMermaid renders a laid-out graph as a Mermaid flowchart. Cards
// become nodes; container entry and merge points become small junctions.
func RenderMermaid(g *graph.Graph, title string) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", title))
	}

	for _, n := range cards(g) {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(n)))
	}

	j := newJunctions(g)
	var lines []string
	for _, e := range g.Edges {
		from, to := j.endpoints(e)
		arrow := "-->"
		if isLoopBack(e) {
			arrow = "-.->"
		}
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(e.Label))
		}
		lines = append(lines, fmt.Sprintf("    %s %s%s %s\n", mermaidSafeID(from), arrow, label, mermaidSafeID(to)))
	}
	for _, id := range j.order {
		b.WriteString(fmt.Sprintf("    %s((\" \"))\n", mermaidSafeID(id)))
	}
	for _, l := range lines {
		b.WriteString(l)
	}

	b.WriteString("\n")
	b.WriteString("    classDef disabled fill:#e8e8e8,stroke:#999,color:#888,stroke-dasharray:5 5\n")
	b.WriteString("    classDef invalid fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	for _, n := range cards(g) {
		switch {
		case n.Diagnostic != "":
			b.WriteString(fmt.Sprintf("    class %s invalid\n", mermaidSafeID(n.ID)))
		case n.Disabled:
			b.WriteString(fmt.Sprintf("    class %s disabled\n", mermaidSafeID(n.ID)))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(n graph.Node) string {
	id := mermaidSafeID(n.ID)
	label := mermaidEscapeLabel(firstLine(n.Label))

	switch n.Widget {
	case widget.ConditionNode:
		return fmt.Sprintf("%s{%q}", id, label)
	case widget.ChoiceDiamond:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case widget.LoopHeader, widget.LoopPageHeader:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case widget.PromptCard:
		return fmt.Sprintf("%s([%q])", id, label)
	case widget.DialogRefCard:
		return fmt.Sprintf("%s[/%q/]", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

var mermaidIDReplacer = strings.NewReplacer(
	".", "_", "-", "_", " ", "_", "[", "_", "]", "", "#", "__",
)

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	return mermaidIDReplacer.Replace(id)
}

var mermaidLabelReplacer = strings.NewReplacer(`"`, "#quot;", "|", "#124;")

// mermaidEscapeLabel escapes characters Mermaid treats as syntax.
func mermaidEscapeLabel(s string) string {
	return mermaidLabelReplacer.Replace(s)
}
