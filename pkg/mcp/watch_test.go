package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRegistry_WatchAndLookup(t *testing.T) {
	r := NewWatchRegistry()

	r.Watch("greeting", "session-b")
	r.Watch("greeting", "session-a")
	r.Watch("greeting", "session-a")

	assert.Equal(t, []string{"session-a", "session-b"}, r.Watchers("greeting"))
}

func TestWatchRegistry_NotFound(t *testing.T) {
	r := NewWatchRegistry()
	assert.Empty(t, r.Watchers("unknown"))
}

func TestWatchRegistry_Unwatch(t *testing.T) {
	r := NewWatchRegistry()

	r.Watch("greeting", "session-a")
	r.Unwatch("greeting", "session-a")
	r.Unwatch("greeting", "session-a")
	r.Unwatch("missing", "session-a")

	assert.Empty(t, r.Watchers("greeting"))
	assert.Empty(t, r.watchers, "empty sets are pruned")
}

func TestWatchRegistry_Remove(t *testing.T) {
	r := NewWatchRegistry()

	r.Watch("greeting", "session-abc")
	r.Watch("checkout", "session-abc")
	r.Watch("checkout", "session-xyz")

	r.Remove("session-abc")

	assert.Empty(t, r.Watchers("greeting"), "greeting should have no watchers")
	assert.Equal(t, []string{"session-xyz"}, r.Watchers("checkout"))
}

func TestMCPNotifier_NoWatchers(t *testing.T) {
	srv := server.NewMCPServer("test", "0.0.0")
	n := NewMCPNotifier(srv, NewWatchRegistry())

	require.NoError(t, n.Notify(context.Background(), "greeting", map[string]any{"revision": 1}))
}

func TestMCPNotifier_DropsStaleSessions(t *testing.T) {
	srv := server.NewMCPServer("test", "0.0.0")
	watchers := NewWatchRegistry()
	watchers.Watch("greeting", "gone")
	n := NewMCPNotifier(srv, watchers)

	require.NoError(t, n.Notify(context.Background(), "greeting", map[string]any{"revision": 2}))
	assert.Empty(t, watchers.Watchers("greeting"))
}
