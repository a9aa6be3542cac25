package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/store"
	"github.com/rendis/flowlayout/internal/streaming"
	"github.com/rendis/flowlayout/pkg/schema"
)

// --- Mock Store ---

type mockStore struct {
	store.Store // embed for unimplemented methods

	snaps     []*store.Snapshot
	pruneKeep int
	pruneErr  error
}

func newMockStore() *mockStore {
	return &mockStore{}
}

func (m *mockStore) latest(dialogID string) *store.Snapshot {
	var out *store.Snapshot
	for _, s := range m.snaps {
		if s.DialogID == dialogID {
			out = s
		}
	}
	return out
}

func (m *mockStore) SaveSnapshot(_ context.Context, dialogID string, g *graph.Graph) (*store.Snapshot, bool, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, false, err
	}
	prev := m.latest(dialogID)
	if prev != nil && prev.Digest == string(data) {
		return prev, false, nil
	}
	rev := int64(1)
	if prev != nil {
		rev = prev.Revision + 1
	}
	snap := &store.Snapshot{
		ID:        fmt.Sprintf("%s-%d", dialogID, rev),
		DialogID:  dialogID,
		Revision:  rev,
		Digest:    string(data),
		Nodes:     len(g.Nodes),
		Edges:     len(g.Edges),
		Graph:     g,
		CreatedAt: time.Now().UTC(),
	}
	m.snaps = append(m.snaps, snap)
	return snap, true, nil
}

func (m *mockStore) GetSnapshot(_ context.Context, id string) (*store.Snapshot, error) {
	for _, s := range m.snaps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, schema.NewError(schema.ErrCodeNotFound, "snapshot not found")
}

func (m *mockStore) LatestSnapshot(_ context.Context, dialogID string) (*store.Snapshot, error) {
	if s := m.latest(dialogID); s != nil {
		return s, nil
	}
	return nil, schema.NewError(schema.ErrCodeNotFound, "snapshot not found")
}

func (m *mockStore) ListSnapshots(_ context.Context, filter store.SnapshotFilter) ([]*store.Snapshot, error) {
	result := make([]*store.Snapshot, 0)
	for _, s := range m.snaps {
		if filter.DialogID != "" && s.DialogID != filter.DialogID {
			continue
		}
		h := header(s)
		result = append(result, &h)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockStore) ListDialogs(_ context.Context) ([]*store.DialogSummary, error) {
	byID := map[string]*store.DialogSummary{}
	for _, s := range m.snaps {
		d, ok := byID[s.DialogID]
		if !ok {
			d = &store.DialogSummary{DialogID: s.DialogID}
			byID[s.DialogID] = d
		}
		d.Revisions++
		d.Latest = s.Revision
	}
	out := make([]*store.DialogSummary, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DialogID < out[j].DialogID })
	return out, nil
}

func (m *mockStore) PruneSnapshots(_ context.Context, keep int) (int64, error) {
	m.pruneKeep = keep
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	return 3, nil
}

// --- Mock Recorder ---

type toolCall struct {
	tool string
	err  error
}

type mockRecorder struct {
	calls   []toolCall
	renders []string
}

func (m *mockRecorder) RecordToolCall(tool string, err error) {
	m.calls = append(m.calls, toolCall{tool, err})
}

func (m *mockRecorder) RecordRender(format string, _ error, _ time.Duration) {
	m.renders = append(m.renders, format)
}

// --- Helpers ---

const linearJSON = `[
	{"$kind": "Microsoft.SendActivity", "activity": "hi"},
	{"$kind": "Microsoft.SendActivity", "activity": "bye"}
]`

const branchJSON = `{
	"$kind": "Microsoft.IfCondition",
	"condition": "user.age >= 21",
	"actions": [{"$kind": "Microsoft.SendActivity", "activity": "cheers"}]
}`

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

type layoutResponse struct {
	Graph    graph.Graph     `json:"graph"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	Snapshot *store.Snapshot `json:"snapshot"`
	Change   *graph.Change   `json:"change"`
}

func decodeLayout(t *testing.T, result *mcp.CallToolResult) layoutResponse {
	t.Helper()
	require.False(t, result.IsError, extractText(t, result))
	var out layoutResponse
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), &out))
	return out
}

func nodeIDs(g graph.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// --- Tests ---

func TestLayoutTool(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})

	result, err := s.handleLayout(context.Background(), buildRequest("flow.layout", map[string]any{
		"dialog": linearJSON,
	}))
	require.NoError(t, err)

	out := decodeLayout(t, result)
	ids := nodeIDs(out.Graph)
	assert.Contains(t, ids, "actions[0]")
	assert.Contains(t, ids, "actions[1]")
	assert.Greater(t, out.Width, 0.0)
	assert.Greater(t, out.Height, 0.0)
	assert.Nil(t, out.Snapshot)
	assert.Nil(t, out.Change)
}

func TestLayoutToolYAMLWithQuery(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})
	doc := strings.Join([]string{
		"$kind: Microsoft.AdaptiveDialog",
		"triggers:",
		"  - $kind: Microsoft.OnBeginDialog",
		"    actions:",
		"      - $kind: Microsoft.SendActivity",
		"        activity: hello",
	}, "\n")

	result, err := s.handleLayout(context.Background(), buildRequest("flow.layout", map[string]any{
		"dialog": doc,
		"format": "yaml",
		"query":  ".triggers[0].actions",
	}))
	require.NoError(t, err)

	out := decodeLayout(t, result)
	assert.Contains(t, nodeIDs(out.Graph), "actions[0]")
}

func TestLayoutToolInputErrors(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing dialog", map[string]any{}, "dialog is required"},
		{"bad format", map[string]any{"dialog": linearJSON, "format": "xml"}, "format must be json or yaml"},
		{"bad json", map[string]any{"dialog": "{"}, "invalid JSON dialog"},
		{"bad query", map[string]any{"dialog": linearJSON, "query": ".["}, "jq parse error"},
		{"empty selection", map[string]any{"dialog": linearJSON, "query": ".[5]"}, "selected nothing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleLayout(context.Background(), buildRequest("flow.layout", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

func TestLayoutToolRecordsSnapshots(t *testing.T) {
	ms := newMockStore()
	s := NewFlowServer(FlowServerDeps{Store: ms})
	ctx := context.Background()

	layout := func(doc string) layoutResponse {
		result, err := s.handleLayout(ctx, buildRequest("flow.layout", map[string]any{
			"dialog":    doc,
			"dialog_id": "greeting",
		}))
		require.NoError(t, err)
		return decodeLayout(t, result)
	}

	first := layout(linearJSON)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, int64(1), first.Snapshot.Revision)
	assert.Nil(t, first.Snapshot.Graph, "responses carry snapshot headers only")
	require.NotNil(t, first.Change)
	assert.Contains(t, first.Change.AddedNodes, "actions[0]")

	again := layout(linearJSON)
	assert.Equal(t, int64(1), again.Snapshot.Revision)
	assert.True(t, again.Change.Empty())
	assert.Len(t, ms.snaps, 1)

	next := layout(branchJSON)
	assert.Equal(t, int64(2), next.Snapshot.Revision)
	assert.NotEmpty(t, next.Change.RemovedNodes)
}

func TestLayoutToolPublishesEvents(t *testing.T) {
	hub := streaming.NewMemoryHub()
	s := NewFlowServer(FlowServerDeps{Store: newMockStore(), Hub: hub})
	ctx := context.Background()

	events, cancel, err := hub.Subscribe(ctx, streaming.Filter{DialogID: "greeting"})
	require.NoError(t, err)
	defer cancel()

	for _, doc := range []string{linearJSON, linearJSON, branchJSON} {
		_, err := s.handleLayout(ctx, buildRequest("flow.layout", map[string]any{
			"dialog":    doc,
			"dialog_id": "greeting",
		}))
		require.NoError(t, err)
	}

	require.Len(t, events, 2, "an unchanged layout publishes nothing")
	first, second := <-events, <-events
	assert.Equal(t, streaming.EventLayoutChanged, first.Type)
	assert.Equal(t, int64(1), first.Revision)
	assert.Equal(t, int64(2), second.Revision)
	change, ok := second.Payload.(graph.Change)
	require.True(t, ok)
	assert.NotEmpty(t, change.RemovedNodes)

	pruned, cancelPruned, err := hub.Subscribe(ctx, streaming.Filter{Types: []string{streaming.EventPruned}})
	require.NoError(t, err)
	defer cancelPruned()
	_, err = s.handleSnapshots(ctx, buildRequest("flow.snapshots", map[string]any{"action": "prune", "keep": 1}))
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.Equal(t, streaming.EventPruned, (<-pruned).Type)
}

func TestLayoutToolDialogIDWithoutStore(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})

	result, err := s.handleLayout(context.Background(), buildRequest("flow.layout", map[string]any{
		"dialog":    linearJSON,
		"dialog_id": "greeting",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "no snapshot store")
}

func TestRenderTool(t *testing.T) {
	rec := &mockRecorder{}
	s := NewFlowServer(FlowServerDeps{Recorder: rec})

	t.Run("mermaid", func(t *testing.T) {
		result, err := s.handleRender(context.Background(), buildRequest("flow.render", map[string]any{
			"dialog":   branchJSON,
			"renderer": "mermaid",
			"title":    "Age gate",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		text := extractText(t, result)
		assert.True(t, strings.HasPrefix(text, "graph TD\n"))
		assert.Contains(t, text, "%% Age gate")
		assert.Contains(t, text, "-->|True|")
	})

	t.Run("ascii", func(t *testing.T) {
		result, err := s.handleRender(context.Background(), buildRequest("flow.render", map[string]any{
			"dialog":   linearJSON,
			"renderer": "ascii",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Contains(t, extractText(t, result), "SendActivity")
	})

	t.Run("image", func(t *testing.T) {
		result, err := s.handleRender(context.Background(), buildRequest("flow.render", map[string]any{
			"dialog":   linearJSON,
			"renderer": "image",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var img *mcp.ImageContent
		for _, c := range result.Content {
			if ic, ok := c.(mcp.ImageContent); ok {
				img = &ic
			}
		}
		require.NotNil(t, img)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.NotEmpty(t, img.Data)
	})

	assert.Equal(t, []string{"mermaid", "ascii", "image"}, rec.renders)
}

func TestRenderToolRejectsUnknownRenderer(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})

	result, err := s.handleRender(context.Background(), buildRequest("flow.render", map[string]any{
		"dialog":   linearJSON,
		"renderer": "svg",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleRender(context.Background(), buildRequest("flow.render", map[string]any{
		"dialog": linearJSON,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestValidateTool(t *testing.T) {
	s := NewFlowServer(FlowServerDeps{})

	var out struct {
		Valid    bool                     `json:"valid"`
		Errors   []schema.ValidationIssue `json:"errors"`
		Warnings []schema.ValidationIssue `json:"warnings"`
	}

	result, err := s.handleValidate(context.Background(), buildRequest("flow.validate", map[string]any{
		"dialog": branchJSON,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), &out))
	assert.True(t, out.Valid)
	assert.Empty(t, out.Errors)

	result, err = s.handleValidate(context.Background(), buildRequest("flow.validate", map[string]any{
		"dialog": `[{"activity": "no kind"}]`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "an invalid dialog is still a successful call")
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), &out))
	assert.False(t, out.Valid)
	require.NotEmpty(t, out.Errors)
	assert.True(t, strings.HasPrefix(out.Errors[0].Path, "actions[0]"))
}

func TestSnapshotsTool(t *testing.T) {
	ms := newMockStore()
	s := NewFlowServer(FlowServerDeps{Store: ms})
	ctx := context.Background()

	for _, doc := range []string{linearJSON, branchJSON} {
		result, err := s.handleLayout(ctx, buildRequest("flow.layout", map[string]any{
			"dialog": doc, "dialog_id": "greeting",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
	}

	call := func(args map[string]any) string {
		t.Helper()
		result, err := s.handleSnapshots(ctx, buildRequest("flow.snapshots", args))
		require.NoError(t, err)
		require.False(t, result.IsError, extractText(t, result))
		return extractText(t, result)
	}

	t.Run("dialogs", func(t *testing.T) {
		var out struct {
			Dialogs []store.DialogSummary `json:"dialogs"`
		}
		require.NoError(t, json.Unmarshal([]byte(call(map[string]any{"action": "dialogs"})), &out))
		require.Len(t, out.Dialogs, 1)
		assert.Equal(t, "greeting", out.Dialogs[0].DialogID)
		assert.Equal(t, int64(2), out.Dialogs[0].Latest)
	})

	t.Run("list", func(t *testing.T) {
		var out struct {
			Snapshots []store.Snapshot `json:"snapshots"`
		}
		require.NoError(t, json.Unmarshal([]byte(call(map[string]any{"action": "list", "dialog_id": "greeting", "limit": 1})), &out))
		require.Len(t, out.Snapshots, 1)
		assert.Nil(t, out.Snapshots[0].Graph)
	})

	t.Run("get and latest", func(t *testing.T) {
		var snap store.Snapshot
		require.NoError(t, json.Unmarshal([]byte(call(map[string]any{"action": "latest", "dialog_id": "greeting"})), &snap))
		assert.Equal(t, int64(2), snap.Revision)
		require.NotNil(t, snap.Graph)

		var byID store.Snapshot
		require.NoError(t, json.Unmarshal([]byte(call(map[string]any{"action": "get", "snapshot_id": "greeting-1"})), &byID))
		assert.Equal(t, int64(1), byID.Revision)
	})

	t.Run("changes", func(t *testing.T) {
		var out struct {
			Changes []graph.Change `json:"changes"`
		}
		require.NoError(t, json.Unmarshal([]byte(call(map[string]any{"action": "changes", "dialog_id": "greeting"})), &out))
		require.Len(t, out.Changes, 2)
		assert.Empty(t, out.Changes[0].RemovedNodes)
		assert.NotEmpty(t, out.Changes[1].RemovedNodes)
	})

	t.Run("prune", func(t *testing.T) {
		var out struct {
			Removed int64 `json:"removed"`
		}
		require.NoError(t, json.Unmarshal([]byte(call(map[string]any{"action": "prune", "keep": 5})), &out))
		assert.Equal(t, int64(3), out.Removed)
		assert.Equal(t, 5, ms.pruneKeep)
	})
}

func TestSnapshotsToolErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no store", func(t *testing.T) {
		s := NewFlowServer(FlowServerDeps{})
		result, err := s.handleSnapshots(ctx, buildRequest("flow.snapshots", map[string]any{"action": "dialogs"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	ms := newMockStore()
	ms.pruneErr = schema.NewError(schema.ErrCodeValidation, "keep must be at least 1")
	s := NewFlowServer(FlowServerDeps{Store: ms})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing action", map[string]any{}, "action is required"},
		{"unknown action", map[string]any{"action": "compact"}, "unknown action"},
		{"get without id", map[string]any{"action": "get"}, "snapshot_id is required"},
		{"get missing", map[string]any{"action": "get", "snapshot_id": "nope"}, "snapshot not found"},
		{"latest without dialog", map[string]any{"action": "latest"}, "dialog_id is required"},
		{"bad since", map[string]any{"action": "list", "since": "yesterday"}, "RFC3339"},
		{"prune failure", map[string]any{"action": "prune"}, "keep must be at least 1"},
		{"watch without session", map[string]any{"action": "watch", "dialog_id": "greeting"}, "client session"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleSnapshots(ctx, buildRequest("flow.snapshots", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

func TestInstrumentRecordsToolCalls(t *testing.T) {
	rec := &mockRecorder{}
	s := NewFlowServer(FlowServerDeps{Recorder: rec})
	ctx := context.Background()

	ok := s.instrument("flow.layout", s.handleLayout)
	_, err := ok(ctx, buildRequest("flow.layout", map[string]any{"dialog": linearJSON}))
	require.NoError(t, err)
	_, err = ok(ctx, buildRequest("flow.layout", map[string]any{}))
	require.NoError(t, err)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "flow.layout", rec.calls[0].tool)
	assert.NoError(t, rec.calls[0].err)
	assert.True(t, errors.Is(rec.calls[1].err, errToolFailed))
}
