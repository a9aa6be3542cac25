package diagram

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rendis/flowlayout/internal/graph"
)

// RenderASCIIAuto tries to render using the mermaid-ascii CLI binary if available,
// falling back to the built-in canvas renderer.
func RenderASCIIAuto(g *graph.Graph, title, binDir string) string {
	if binDir != "" {
		binPath := filepath.Join(binDir, "mermaid-ascii")
		if _, err := os.Stat(binPath); err == nil {
			result, err := RenderASCIIViaCLI(g, binPath)
			if err == nil {
				return result
			}
		}
	}
	return RenderASCII(g, title)
}

// RenderASCIIViaCLI pipes simplified Mermaid syntax through the mermaid-ascii binary.
func RenderASCIIViaCLI(g *graph.Graph, binPath string) (string, error) {
	cmd := exec.Command(binPath)
	cmd.Stdin = strings.NewReader(RenderMermaidForCLI(g))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("mermaid-ascii: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// RenderMermaidForCLI generates simplified Mermaid syntax compatible with the
// mermaid-ascii CLI tool: no node declarations, labels folded into the
// edge-referenced IDs, junctions shown as "+".
func RenderMermaidForCLI(g *graph.Graph) string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	display := make(map[string]string, len(g.Nodes))
	seen := make(map[string]int)
	for _, n := range cards(g) {
		display[n.ID] = uniqueCLIID(cliNodeID(n), seen)
	}
	junction := make(map[string]string)
	resolve := func(id string) string {
		if d, ok := display[id]; ok {
			return d
		}
		if d, ok := junction[id]; ok {
			return d
		}
		d := uniqueCLIID("+", seen)
		junction[id] = d
		return d
	}

	j := newJunctions(g)
	for _, e := range g.Edges {
		if isLoopBack(e) {
			continue
		}
		from, to := j.endpoints(e)
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf("|%s|", e.Label)
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n", resolve(from), label, resolve(to)))
	}
	return b.String()
}

// cliNodeID builds a display ID for the mermaid-ascii CLI.
func cliNodeID(n graph.Node) string {
	id := firstLine(n.Label)
	if id == "" {
		id = n.ID
	}
	if n.Disabled {
		id += "-OFF"
	}
	return strings.NewReplacer(" ", "-", "|", "/").Replace(id)
}

// uniqueCLIID suffixes repeated display IDs, which mermaid-ascii would
// otherwise merge into one box.
func uniqueCLIID(id string, seen map[string]int) string {
	seen[id]++
	if n := seen[id]; n > 1 {
		return fmt.Sprintf("%s-%d", id, n)
	}
	return id
}
