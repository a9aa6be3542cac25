package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowlayout/internal/diagram"
	"github.com/rendis/flowlayout/internal/dialog"
	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/logging"
	"github.com/rendis/flowlayout/internal/store"
	"github.com/rendis/flowlayout/internal/streaming"
)

var errToolFailed = errors.New("tool returned an error result")

// handleLayout lays out a dialog and optionally records it as a snapshot.
func (s *FlowServer) handleLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, errResult := s.loadDialog(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	dialogID := req.GetString("dialog_id", "")
	if dialogID != "" {
		ctx = logging.WithDialogID(ctx, dialogID)
	}
	g := s.builder.BuildContext(ctx, root)
	width, height := g.Bounds()
	out := map[string]any{
		"graph":  g,
		"width":  width,
		"height": height,
	}
	if dialogID == "" {
		return marshalResult(out)
	}

	if s.history == nil {
		return mcp.NewToolResultError("dialog_id given but no snapshot store is configured"), nil
	}
	s.captureSession(ctx, dialogID)

	snap, change, err := s.history.Record(ctx, dialogID, g)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to record snapshot: %v", err)), nil
	}
	out["snapshot"] = header(snap)
	out["change"] = change

	if !change.Empty() {
		s.notifyChange(ctx, dialogID, snap, change)
	}
	return marshalResult(out)
}

// handleRender lays out a dialog and renders it in the requested format.
func (s *FlowServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	renderer, err := req.RequireString("renderer")
	if err != nil {
		return mcp.NewToolResultError("renderer is required"), nil
	}
	if renderer != "ascii" && renderer != "mermaid" && renderer != "image" {
		return mcp.NewToolResultError("renderer must be ascii, mermaid, or image"), nil
	}

	root, errResult := s.loadDialog(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	title := req.GetString("title", "")
	g := s.builder.BuildContext(ctx, root)

	start := time.Now()
	switch renderer {
	case "ascii":
		text := diagram.RenderASCIIAuto(g, title, s.binDir)
		s.recordRender(renderer, nil, start)
		return mcp.NewToolResultText(text), nil
	case "mermaid":
		text := diagram.RenderMermaid(g, title)
		s.recordRender(renderer, nil, start)
		return mcp.NewToolResultText(text), nil
	default:
		png, imgErr := diagram.RenderImage(g, title)
		s.recordRender(renderer, imgErr, start)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		encoded := base64.StdEncoding.EncodeToString(png)
		return mcp.NewToolResultImage(fmt.Sprintf("%d nodes, %d edges", len(g.Nodes), len(g.Edges)), encoded, "image/png"), nil
	}
}

// handleValidate lints a dialog. An invalid dialog is a successful call
// whose result lists the problems.
func (s *FlowServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.linter == nil {
		return mcp.NewToolResultError("no linter is configured"), nil
	}
	root, errResult := s.loadDialog(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	result := s.linter.Validate(root)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// handleSnapshots dispatches the snapshot store operations.
func (s *FlowServer) handleSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}

	switch action {
	case "watch", "unwatch":
		return s.watch(ctx, req, action == "watch")
	}

	if s.store == nil {
		return mcp.NewToolResultError("no snapshot store is configured"), nil
	}

	switch action {
	case "dialogs":
		dialogs, err := s.store.ListDialogs(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		return marshalResult(map[string]any{"dialogs": dialogs})
	case "list":
		return s.listSnapshots(ctx, req)
	case "get":
		id, err := req.RequireString("snapshot_id")
		if err != nil {
			return mcp.NewToolResultError("snapshot_id is required"), nil
		}
		snap, err := s.store.GetSnapshot(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", err)), nil
		}
		return marshalResult(snap)
	case "latest":
		dialogID, err := req.RequireString("dialog_id")
		if err != nil {
			return mcp.NewToolResultError("dialog_id is required"), nil
		}
		snap, err := s.store.LatestSnapshot(ctx, dialogID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", err)), nil
		}
		return marshalResult(snap)
	case "changes":
		dialogID, err := req.RequireString("dialog_id")
		if err != nil {
			return mcp.NewToolResultError("dialog_id is required"), nil
		}
		changes, err := s.history.Changes(ctx, dialogID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
		}
		return marshalResult(map[string]any{"dialog_id": dialogID, "changes": changes})
	case "prune":
		keep := req.GetInt("keep", 0)
		removed, err := s.store.PruneSnapshots(ctx, keep)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("prune failed: %v", err)), nil
		}
		s.publish(ctx, streaming.Event{
			Type:    streaming.EventPruned,
			Payload: map[string]any{"removed": removed, "keep": keep},
		})
		return marshalResult(map[string]any{"removed": removed, "keep": keep})
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
}

// --- Snapshot helpers ---

func (s *FlowServer) listSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.SnapshotFilter{
		DialogID: req.GetString("dialog_id", ""),
		Limit:    req.GetInt("limit", 50),
	}
	if since := req.GetString("since", ""); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("since must be RFC3339: %v", err)), nil
		}
		filter.Since = &t
	}

	snaps, err := s.store.ListSnapshots(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"snapshots": snaps})
}

func (s *FlowServer) watch(ctx context.Context, req mcp.CallToolRequest, on bool) (*mcp.CallToolResult, error) {
	dialogID, err := req.RequireString("dialog_id")
	if err != nil {
		return mcp.NewToolResultError("dialog_id is required"), nil
	}
	session := server.ClientSessionFromContext(ctx)
	if session == nil {
		return mcp.NewToolResultError("watching requires a client session"), nil
	}
	if on {
		s.watchers.Watch(dialogID, session.SessionID())
	} else {
		s.watchers.Unwatch(dialogID, session.SessionID())
	}
	return marshalResult(map[string]any{"dialog_id": dialogID, "watching": on})
}

// --- Internal helpers ---

// loadDialog decodes the dialog argument and applies the optional root
// query. A non-nil result is the error to hand back to the client.
func (s *FlowServer) loadDialog(ctx context.Context, req mcp.CallToolRequest) (any, *mcp.CallToolResult) {
	text, err := req.RequireString("dialog")
	if err != nil {
		return nil, mcp.NewToolResultError("dialog is required")
	}
	format := dialog.Format(req.GetString("format", string(dialog.FormatJSON)))
	if format != dialog.FormatJSON && format != dialog.FormatYAML {
		return nil, mcp.NewToolResultError("format must be json or yaml")
	}

	doc, err := dialog.Decode([]byte(text), format)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	root, err := dialog.Select(ctx, doc, req.GetString("query", ""))
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return root, nil
}

// captureSession subscribes the calling session to dialogID.
func (s *FlowServer) captureSession(ctx context.Context, dialogID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.watchers.Watch(dialogID, session.SessionID())
	}
}

func (s *FlowServer) notifyChange(ctx context.Context, dialogID string, snap *store.Snapshot, change graph.Change) {
	payload := map[string]any{
		"dialog_id": dialogID,
		"revision":  snap.Revision,
		"change":    change,
	}
	if err := s.notifier.Notify(ctx, dialogID, payload); err != nil {
		logging.LogWith(ctx, s.logger).Warn("change notification failed", slog.String("error", err.Error()))
	}
	s.publish(ctx, streaming.Event{
		Type:     streaming.EventLayoutChanged,
		DialogID: dialogID,
		Revision: snap.Revision,
		Payload:  change,
	})
}

func (s *FlowServer) publish(ctx context.Context, event streaming.Event) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Publish(ctx, event); err != nil {
		logging.LogWith(ctx, s.logger).Warn("event publish failed", slog.String("type", event.Type), slog.String("error", err.Error()))
	}
}

func (s *FlowServer) recordRender(format string, err error, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordRender(format, err, time.Since(start))
	}
}

// header strips the graph from a snapshot for compact responses.
func header(snap *store.Snapshot) store.Snapshot {
	h := *snap
	h.Graph = nil
	return h
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
