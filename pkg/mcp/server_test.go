package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcResult is the subset of a tools/call response the tests inspect.
type rpcResult struct {
	Result *struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rpc sends one JSON-RPC message through the server and decodes the reply.
func rpc(t *testing.T, s *FlowServer, id int, method string, params map[string]any) rpcResult {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})
	require.NoError(t, err)

	resp := s.MCPServer().HandleMessage(context.Background(), raw)
	require.NotNil(t, resp)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out rpcResult
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func initialize(t *testing.T, s *FlowServer) {
	t.Helper()
	rpc(t, s, 0, "initialize", map[string]any{
		"protocolVersion": "2025-03-26",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "flowlayout-test", "version": "1.0.0"},
	})
}

func TestNewFlowServerDefaults(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.builder)
	assert.NotNil(t, s.linter, "a default linter is installed")
	assert.Nil(t, s.history, "no store, no history")
	assert.Nil(t, s.hub)
	assert.NotNil(t, s.HTTPHandler())
	assert.Same(t, s.watchers, s.Watchers())

	withStore := NewFlowServer(FlowServerDeps{Store: newMockStore()})
	assert.NotNil(t, withStore.history)
}

func TestToolSchemas(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})
	require.Len(t, s.MCPServer().ListTools(), 4)

	tests := []struct {
		tool        string
		description string
		required    []string
		enums       map[string][]string
	}{
		{
			tool:        "flow.layout",
			description: "Lay out a dialog action tree as positioned nodes and edges",
			required:    []string{"dialog"},
			enums:       map[string][]string{"format": {"json", "yaml"}},
		},
		{
			tool:        "flow.render",
			description: "Render a dialog action tree as ASCII art, Mermaid flowchart syntax, or a PNG image",
			required:    []string{"renderer", "dialog"},
			enums:       map[string][]string{"renderer": {"ascii", "mermaid", "image"}},
		},
		{
			tool:        "flow.validate",
			description: "Lint a dialog action tree for structural and expression problems",
			required:    []string{"dialog"},
		},
		{
			tool:        "flow.snapshots",
			description: "Inspect, diff, prune, or watch recorded dialog layouts",
			required:    []string{"action"},
			enums: map[string][]string{
				"action": {"dialogs", "list", "get", "latest", "changes", "prune", "watch", "unwatch"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.tool, func(t *testing.T) {
			st := s.MCPServer().GetTool(tc.tool)
			require.NotNil(t, st)
			assert.Equal(t, tc.description, st.Tool.Description)
			assert.ElementsMatch(t, tc.required, st.Tool.InputSchema.Required)
			for prop, want := range tc.enums {
				schema, ok := st.Tool.InputSchema.Properties[prop].(map[string]any)
				require.True(t, ok, prop)
				assert.Equal(t, want, schema["enum"], prop)
			}
		})
	}
}

func TestToolCallRoundTrip(t *testing.T) {
	rec := &mockRecorder{}
	s := NewFlowServer(FlowServerDeps{Recorder: rec})
	initialize(t, s)

	resp := rpc(t, s, 1, "tools/call", map[string]any{
		"name":      "flow.render",
		"arguments": map[string]any{"dialog": linearJSON, "renderer": "mermaid", "title": "Greeting"},
	})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	assert.False(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)
	assert.Contains(t, resp.Result.Content[0].Text, "graph TD")
	assert.Contains(t, resp.Result.Content[0].Text, "%% Greeting")

	resp = rpc(t, s, 2, "tools/call", map[string]any{
		"name":      "flow.layout",
		"arguments": map[string]any{"dialog": "{not json"},
	})
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.IsError)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "flow.render", rec.calls[0].tool)
	assert.NoError(t, rec.calls[0].err)
	assert.ErrorIs(t, rec.calls[1].err, errToolFailed)
}
