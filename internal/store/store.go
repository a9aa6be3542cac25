package store

import (
	"context"

	"github.com/rendis/flowlayout/internal/graph"
)

// Store defines the snapshot persistence contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// SaveSnapshot stores g as the next revision of dialogID unless it is
	// identical to the latest one. created reports whether a row was
	// written; the returned snapshot is the stored or the unchanged latest.
	SaveSnapshot(ctx context.Context, dialogID string, g *graph.Graph) (snap *Snapshot, created bool, err error)
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	LatestSnapshot(ctx context.Context, dialogID string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error)
	ListDialogs(ctx context.Context) ([]*DialogSummary, error)

	// PruneSnapshots keeps the newest keep revisions of every dialog.
	PruneSnapshots(ctx context.Context, keep int) (int64, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
