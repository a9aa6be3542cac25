// gen-diagrams generates sample diagram outputs for README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/flowlayout/internal/diagram"
)

func send(name, text string) map[string]any {
	return map[string]any{
		"$kind":     "Microsoft.SendActivity",
		"$designer": map[string]any{"name": name},
		"activity":  text,
	}
}

func main() {
	// Order bot: ask → if(in stock) → switch(shipping) → foreach(items) → confirm
	dialog := []any{
		map[string]any{
			"$kind":     "Microsoft.TextInput",
			"$designer": map[string]any{"name": "ask-order"},
			"property":  "dialog.order",
			"prompt":    "What would you like to order?",
		},
		map[string]any{
			"$kind":       "Microsoft.IfCondition",
			"condition":   "dialog.stock > 0",
			"actions":     []any{send("reserve", "Reserving ${dialog.order}")},
			"elseActions": []any{send("restock", "Sorry, we are out of stock")},
		},
		map[string]any{
			"$kind":     "Microsoft.SwitchCondition",
			"condition": "user.shipping",
			"cases": []any{
				map[string]any{"value": "express", "actions": []any{send("express", "Ships tomorrow")}},
				map[string]any{"value": "standard", "actions": []any{}},
			},
			"default": []any{send("pickup", "Ready for pickup")},
		},
		map[string]any{
			"$kind":         "Microsoft.Foreach",
			"itemsProperty": "dialog.items",
			"actions":       []any{send("line-item", "${dialog.foreach.value.name}")},
		},
		map[string]any{
			"$kind":     "Microsoft.BeginDialog",
			"$designer": map[string]any{"name": "confirm"},
			"dialog":    "ConfirmOrder",
		},
	}

	g := diagram.NewBuilder().Build(dialog)
	title := "order-bot"

	outDir := filepath.Join("docs", "assets")
	os.MkdirAll(outDir, 0o755)

	// ASCII (mermaid-ascii with built-in fallback)
	home, _ := os.UserHomeDir()
	binDir := filepath.Join(home, ".flowlayout", "bin")
	ascii := diagram.RenderASCIIAuto(g, title, binDir)
	os.WriteFile(filepath.Join(outDir, "diagram-ascii.txt"), []byte(ascii), 0o644)
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	// Mermaid
	mermaid := diagram.RenderMermaid(g, title)
	os.WriteFile(filepath.Join(outDir, "diagram-mermaid.md"), []byte("```mermaid\n"+mermaid+"\n```\n"), 0o644)
	fmt.Println("=== Mermaid ===")
	fmt.Println(mermaid)

	// Image (PNG)
	png, imgErr := diagram.RenderImage(g, title)
	if imgErr != nil {
		fmt.Fprintf(os.Stderr, "image error: %v\n", imgErr)
	} else {
		pngPath := filepath.Join(outDir, "diagram-sample.png")
		os.WriteFile(pngPath, png, 0o644)
		fmt.Printf("=== Image (PNG) ===\nWritten: %s (%d bytes)\n", pngPath, len(png))
	}
}
