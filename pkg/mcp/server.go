package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowlayout/internal/diagram"
	"github.com/rendis/flowlayout/internal/store"
	"github.com/rendis/flowlayout/internal/streaming"
	"github.com/rendis/flowlayout/internal/validation"
)

// Recorder receives per-call measurements. *metrics.Registry satisfies it.
type Recorder interface {
	RecordToolCall(tool string, err error)
	RecordRender(format string, err error, duration time.Duration)
}

// FlowServerDeps holds the dependencies for creating a FlowServer.
// Only Builder is required in practice; a nil Builder gets the defaults.
type FlowServerDeps struct {
	Builder  *diagram.Builder
	Linter   validation.Validator
	Store    store.Store
	Recorder Recorder
	// Hub, when set, also receives layout.changed and snapshots.pruned events.
	Hub streaming.EventHub
	// BinDir is searched for the mermaid-ascii binary.
	BinDir string
	Logger *slog.Logger
}

// FlowServer wraps an MCP server with the flow.* tool handlers.
type FlowServer struct {
	builder   *diagram.Builder
	linter    validation.Validator
	store     store.Store
	history   *store.History
	recorder  Recorder
	hub       streaming.EventHub
	binDir    string
	logger    *slog.Logger
	watchers  *WatchRegistry
	notifier  ChangeNotifier
	mcpServer *server.MCPServer
}

// NewFlowServer creates a new FlowServer with all 4 tools registered.
func NewFlowServer(deps FlowServerDeps) *FlowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	builder := deps.Builder
	if builder == nil {
		builder = diagram.NewBuilder(diagram.WithLogger(logger))
	}

	linter := deps.Linter
	if linter == nil {
		l, err := validation.NewLinter(nil, nil)
		if err != nil {
			logger.Warn("default linter unavailable", slog.String("error", err.Error()))
		} else {
			linter = l
		}
	}

	s := &FlowServer{
		builder:  builder,
		linter:   linter,
		store:    deps.Store,
		recorder: deps.Recorder,
		hub:      deps.Hub,
		binDir:   deps.BinDir,
		logger:   logger,
		watchers: NewWatchRegistry(),
	}
	if deps.Store != nil {
		s.history = store.NewHistory(deps.Store)
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		s.watchers.Remove(session.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"flowlayout",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("flowlayout lays out adaptive dialog action trees as positioned nodes and edges. Use flow.layout for the raw graph, flow.render for ASCII, Mermaid or PNG output, flow.validate to lint a dialog, and flow.snapshots to inspect recorded layouts per dialog."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.watchers)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// HTTPHandler returns the streamable HTTP transport for mounting on a mux.
func (s *FlowServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Watchers exposes the dialog subscription registry.
func (s *FlowServer) Watchers() *WatchRegistry {
	return s.watchers
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *FlowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: layoutTool(), Handler: s.instrument("flow.layout", s.handleLayout)},
		{Tool: renderTool(), Handler: s.instrument("flow.render", s.handleRender)},
		{Tool: validateTool(), Handler: s.instrument("flow.validate", s.handleValidate)},
		{Tool: snapshotsTool(), Handler: s.instrument("flow.snapshots", s.handleSnapshots)},
	}
}

// instrument records every call of a tool handler.
func (s *FlowServer) instrument(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req)
		if s.recorder != nil {
			callErr := err
			if callErr == nil && result != nil && result.IsError {
				callErr = errToolFailed
			}
			s.recorder.RecordToolCall(name, callErr)
		}
		return result, err
	}
}

// --- Tool definitions ---

func dialogArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("dialog", mcp.Required(), mcp.Description("Dialog document: an action object, an array of actions, or a dialog reference string, encoded as JSON or YAML")),
		mcp.WithString("format",
			mcp.Enum("json", "yaml"),
			mcp.Description("Encoding of dialog (default: json)"),
		),
		mcp.WithString("query", mcp.Description("jq query selecting the layout root inside the document, e.g. .triggers[0]")),
	}
}

func layoutTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Lay out a dialog action tree as positioned nodes and edges"),
		mcp.WithString("dialog_id", mcp.Description("Record the layout as the next snapshot of this dialog and report what changed")),
	}, dialogArgs()...)
	return mcp.NewTool("flow.layout", opts...)
}

func renderTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Render a dialog action tree as ASCII art, Mermaid flowchart syntax, or a PNG image"),
		mcp.WithString("renderer", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (PNG)"),
		),
		mcp.WithString("title", mcp.Description("Optional diagram title")),
	}, dialogArgs()...)
	return mcp.NewTool("flow.render", opts...)
}

func validateTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Lint a dialog action tree for structural and expression problems"),
	}, dialogArgs()...)
	return mcp.NewTool("flow.validate", opts...)
}

func snapshotsTool() mcp.Tool {
	return mcp.NewTool("flow.snapshots",
		mcp.WithDescription("Inspect, diff, prune, or watch recorded dialog layouts"),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("dialogs", "list", "get", "latest", "changes", "prune", "watch", "unwatch"),
			mcp.Description("Operation to perform"),
		),
		mcp.WithString("dialog_id", mcp.Description("Dialog to operate on (list, latest, changes, watch, unwatch)")),
		mcp.WithString("snapshot_id", mcp.Description("Snapshot ID (get)")),
		mcp.WithString("since", mcp.Description("RFC3339 lower bound on creation time (list)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of snapshots to list (default: 50)")),
		mcp.WithNumber("keep", mcp.Description("Revisions to keep per dialog (prune)")),
	)
}
