package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rendis/flowlayout/internal/diagram"
	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/logging"
	"github.com/rendis/flowlayout/internal/store"
	"github.com/rendis/flowlayout/pkg/schema"
)

// dialogInput is the shared "which dialog" flag set.
type dialogInput struct {
	File   string `arg:"" optional:"" default:"-" help:"Dialog file, JSON or YAML. Reads stdin when omitted or '-'."`
	Format string `enum:"auto,json,yaml" default:"auto" help:"Input encoding; auto picks by file extension."`
	Query  string `short:"q" help:"jq query selecting the layout root, e.g. .triggers[0]."`
}

func (in *dialogInput) load(ctx context.Context, a *app) (any, error) {
	r := a.stdin
	format := dialog.FormatJSON
	if in.File != "-" {
		f, err := os.Open(in.File)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeInput, "open dialog %s", in.File).WithCause(err)
		}
		defer f.Close()
		r = f
		format = dialog.FormatFromPath(in.File)
	}
	if in.Format != "auto" {
		format = dialog.Format(in.Format)
	}

	doc, err := dialog.Load(r, format)
	if err != nil {
		return nil, err
	}
	return dialog.Select(ctx, doc, in.Query)
}

// name is the file name without extension, or "" for stdin.
func (in *dialogInput) name() string {
	if in.File == "-" {
		return ""
	}
	base := filepath.Base(in.File)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LayoutCmd prints the positioned graph.
type LayoutCmd struct {
	Input    dialogInput `embed:""`
	DialogID string      `name:"dialog-id" help:"Record the layout as the next snapshot of this dialog."`
	Compact  bool        `help:"Print JSON on one line."`
}

func (c *LayoutCmd) Run(ctx context.Context, a *app) error {
	root, err := c.Input.load(ctx, a)
	if err != nil {
		return err
	}
	b, err := a.builder()
	if err != nil {
		return err
	}
	if c.DialogID != "" {
		ctx = logging.WithDialogID(ctx, c.DialogID)
	}
	g := b.BuildContext(ctx, root)
	width, height := g.Bounds()
	out := map[string]any{"graph": g, "width": width, "height": height}

	if c.DialogID != "" {
		s, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		snap, change, err := store.NewHistory(s).Record(ctx, c.DialogID, g)
		if err != nil {
			return err
		}
		h := *snap
		h.Graph = nil
		out["snapshot"] = h
		out["change"] = change
	}
	return writeJSON(a.stdout, out, c.Compact)
}

// RenderCmd renders the laid out graph.
type RenderCmd struct {
	Input    dialogInput `embed:""`
	Renderer string      `short:"r" enum:"ascii,mermaid,image" default:"ascii" help:"Output format: ascii, mermaid or image (PNG)."`
	Title    string      `help:"Diagram title; defaults to the file name."`
	Output   string      `short:"o" type:"path" help:"Write to a file instead of stdout."`
	Builtin  bool        `help:"Use the built-in ASCII canvas even when mermaid-ascii is installed."`
}

func (c *RenderCmd) Run(ctx context.Context, a *app) error {
	root, err := c.Input.load(ctx, a)
	if err != nil {
		return err
	}
	b, err := a.builder()
	if err != nil {
		return err
	}
	g := b.BuildContext(ctx, root)

	title := c.Title
	if title == "" {
		title = c.Input.name()
	}

	var data []byte
	switch c.Renderer {
	case "mermaid":
		data = []byte(diagram.RenderMermaid(g, title) + "\n")
	case "image":
		png, err := diagram.RenderImage(g, title)
		if err != nil {
			return err
		}
		data = png
	default:
		binDir := a.cfg.BinDir
		if c.Builtin {
			binDir = ""
		}
		data = []byte(diagram.RenderASCIIAuto(g, title, binDir))
	}

	if c.Output == "" {
		_, err = a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return schema.NewErrorf(schema.ErrCodeRender, "write %s", c.Output).WithCause(err)
	}
	a.logger.Info("diagram written", "path", c.Output, "bytes", len(data))
	return nil
}

// ValidateCmd lints a dialog and fails on errors.
type ValidateCmd struct {
	Input         dialogInput `embed:""`
	FailOnWarning bool        `help:"Exit non-zero on warnings too."`
	JSON          bool        `name:"json" help:"Print the result as JSON."`
}

func (c *ValidateCmd) Run(ctx context.Context, a *app) error {
	root, err := c.Input.load(ctx, a)
	if err != nil {
		return err
	}
	l, err := a.linter()
	if err != nil {
		return err
	}
	result := l.Validate(root)

	if c.JSON {
		if err := writeJSON(a.stdout, result, false); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		for _, issue := range result.Issues() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", issue.Severity, displayPath(issue.Path), issue.Code, issue.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, result.Summary())
	}

	return result.ToError(c.FailOnWarning)
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

// SnapshotsCmd groups the snapshot store commands.
type SnapshotsCmd struct {
	List    SnapshotsListCmd    `cmd:"" help:"List recorded snapshots, newest first."`
	Dialogs SnapshotsDialogsCmd `cmd:"" help:"List dialogs with recorded snapshots."`
	Changes SnapshotsChangesCmd `cmd:"" help:"Show what each retained revision of a dialog changed."`
	Prune   SnapshotsPruneCmd   `cmd:"" help:"Keep only the newest revisions of every dialog."`
}

type SnapshotsListCmd struct {
	DialogID string        `arg:"" optional:"" help:"Only this dialog."`
	Limit    int           `default:"50" help:"Maximum rows."`
	Since    time.Duration `help:"Only snapshots newer than this, e.g. 24h."`
}

func (c *SnapshotsListCmd) Run(ctx context.Context, a *app) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	filter := store.SnapshotFilter{DialogID: c.DialogID, Limit: c.Limit}
	if c.Since > 0 {
		t := time.Now().UTC().Add(-c.Since)
		filter.Since = &t
	}
	snaps, err := s.ListSnapshots(ctx, filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIALOG\tREV\tNODES\tEDGES\tSIZE\tCREATED\tID")
	for _, snap := range snaps {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.0fx%.0f\t%s\t%s\n",
			snap.DialogID, snap.Revision, snap.Nodes, snap.Edges, snap.Width, snap.Height,
			snap.CreatedAt.Format(time.RFC3339), snap.ID)
	}
	return tw.Flush()
}

type SnapshotsDialogsCmd struct{}

func (c *SnapshotsDialogsCmd) Run(ctx context.Context, a *app) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	dialogs, err := s.ListDialogs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIALOG\tREVISIONS\tLATEST\tUPDATED")
	for _, d := range dialogs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", d.DialogID, d.Revisions, d.Latest, d.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

type SnapshotsChangesCmd struct {
	DialogID string `arg:"" help:"Dialog to replay."`
}

func (c *SnapshotsChangesCmd) Run(ctx context.Context, a *app) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	changes, err := store.NewHistory(s).Changes(ctx, c.DialogID)
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, map[string]any{"dialog_id": c.DialogID, "changes": changes}, false)
}

type SnapshotsPruneCmd struct {
	Keep int `help:"Revisions to keep per dialog; defaults to keep_revisions."`
}

func (c *SnapshotsPruneCmd) Run(ctx context.Context, a *app) error {
	keep := c.Keep
	if keep == 0 {
		keep = a.cfg.KeepRevisions
	}
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	removed, err := s.PruneSnapshots(ctx, keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "removed %d snapshots (keeping %d per dialog)\n", removed, keep)
	return nil
}

func writeJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
