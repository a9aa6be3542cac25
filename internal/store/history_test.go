package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRecord(t *testing.T) {
	h := NewHistory(newTestStore(t))
	ctx := context.Background()

	snap, change, err := h.Record(ctx, "main", testGraph(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Revision)
	assert.Equal(t, []string{"actions[0]", "actions[1]"}, change.AddedNodes)
	assert.Len(t, change.AddedEdges, 1)

	snap, change, err = h.Record(ctx, "main", testGraph(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Revision)
	assert.True(t, change.Empty())

	snap, change, err = h.Record(ctx, "main", testGraph(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Revision)
	assert.Equal(t, []string{"actions[2]"}, change.AddedNodes)
	assert.Empty(t, change.MovedNodes)
	assert.Empty(t, change.RemovedNodes)

	_, change, err = h.Record(ctx, "main", testGraph(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"actions[1]", "actions[2]"}, change.RemovedNodes)
	assert.Len(t, change.RemovedEdges, 2)
}

func TestHistoryChanges(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s)
	ctx := context.Background()

	changes, err := h.Changes(ctx, "main")
	require.NoError(t, err)
	assert.Empty(t, changes)

	for n := 1; n <= 4; n++ {
		_, _, err := h.Record(ctx, "main", testGraph(n))
		require.NoError(t, err)
	}

	changes, err = h.Changes(ctx, "main")
	require.NoError(t, err)
	require.Len(t, changes, 4)
	assert.Len(t, changes[0].AddedNodes, 1)
	for _, c := range changes[1:] {
		assert.Len(t, c.AddedNodes, 1)
		assert.Len(t, c.AddedEdges, 1)
	}

	// After a prune the first retained revision diffs against nothing.
	_, err = s.PruneSnapshots(ctx, 2)
	require.NoError(t, err)
	changes, err = h.Changes(ctx, "main")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Len(t, changes[0].AddedNodes, 3)
	assert.Equal(t, []string{"actions[3]"}, changes[1].AddedNodes)
}

func TestHistoryChanges_Gap(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s)
	ctx := context.Background()

	for n := 1; n <= 3; n++ {
		_, _, err := h.Record(ctx, "main", testGraph(n))
		require.NoError(t, err)
	}
	_, err := s.DB().ExecContext(ctx, `DELETE FROM snapshots WHERE dialog_id = 'main' AND revision = 2`)
	require.NoError(t, err)

	_, err = h.Changes(ctx, "main")
	assertFlowError(t, err, "STORE_ERROR")
}
