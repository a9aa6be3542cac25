package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// ChangeMethod is the notification method pushed when a dialog's recorded
// layout changes.
const ChangeMethod = "notifications/flow.changed"

// ChangeNotifier pushes layout change notifications to interested hosts.
type ChangeNotifier interface {
	Notify(ctx context.Context, dialogID string, payload map[string]any) error
}

// MCPNotifier implements ChangeNotifier on top of MCP server push.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	watchers  *WatchRegistry
}

// NewMCPNotifier creates a notifier that pushes to watching sessions.
func NewMCPNotifier(mcpServer *server.MCPServer, watchers *WatchRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, watchers: watchers}
}

// Notify sends payload to every session watching dialogID.
// Best-effort: sessions that went away are dropped silently.
func (n *MCPNotifier) Notify(_ context.Context, dialogID string, payload map[string]any) error {
	var errs []error
	for _, sessionID := range n.watchers.Watchers(dialogID) {
		err := n.mcpServer.SendNotificationToSpecificClient(sessionID, ChangeMethod, payload)
		if errors.Is(err, server.ErrSessionNotFound) {
			n.watchers.Remove(sessionID)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
