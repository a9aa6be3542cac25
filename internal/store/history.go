package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/pkg/schema"
)

// History tracks how a dialog's layout evolves across edits on top of a
// Store.
type History struct {
	store Store
}

// NewHistory wraps a Store to provide layout history operations.
func NewHistory(s Store) *History {
	return &History{store: s}
}

// Record saves g as the latest layout of dialogID and returns the change
// against the previous revision. An unchanged layout records nothing and
// yields an empty change.
func (h *History) Record(ctx context.Context, dialogID string, g *graph.Graph) (*Snapshot, graph.Change, error) {
	prev, err := h.store.LatestSnapshot(ctx, dialogID)
	if err != nil && !isNotFound(err) {
		return nil, graph.Change{}, fmt.Errorf("load latest snapshot: %w", err)
	}

	snap, created, err := h.store.SaveSnapshot(ctx, dialogID, g)
	if err != nil {
		return nil, graph.Change{}, err
	}
	if !created {
		return snap, graph.Change{}, nil
	}

	var before *graph.Graph
	if prev != nil {
		before = prev.Graph
	}
	return snap, graph.Diff(before, g), nil
}

// Changes replays the stored revisions of dialogID oldest first and returns
// the change introduced by each one. The first retained revision diffs
// against an empty graph. Returns an error if revisions are not
// contiguous.
func (h *History) Changes(ctx context.Context, dialogID string) ([]graph.Change, error) {
	headers, err := h.store.ListSnapshots(ctx, SnapshotFilter{DialogID: dialogID})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(headers) == 0 {
		return nil, nil
	}

	// Pruning only removes the oldest revisions, so the retained ones must
	// form one run.
	sort.Slice(headers, func(i, j int) bool { return headers[i].Revision > headers[j].Revision })
	first := headers[len(headers)-1].Revision
	changes := make([]graph.Change, 0, len(headers))
	var prev *graph.Graph
	for i := len(headers) - 1; i >= 0; i-- {
		hd := headers[i]
		expected := first + int64(len(headers)-1-i)
		if hd.Revision != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"revision gap in dialog %s: expected %d, got %d", dialogID, expected, hd.Revision)
		}
		snap, err := h.store.GetSnapshot(ctx, hd.ID)
		if err != nil {
			return nil, err
		}
		changes = append(changes, graph.Diff(prev, snap.Graph))
		prev = snap.Graph
	}
	return changes, nil
}

func isNotFound(err error) bool {
	fe, ok := err.(*schema.FlowError)
	return ok && fe.Code == schema.ErrCodeNotFound
}
