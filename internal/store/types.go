package store

import (
	"time"

	"github.com/rendis/flowlayout/internal/graph"
)

// Snapshot is a persisted layout of one dialog. Revisions count up per
// dialog; a new revision is only written when the layout changed.
type Snapshot struct {
	ID        string       `json:"id"`
	DialogID  string       `json:"dialog_id"`
	Revision  int64        `json:"revision"`
	Digest    string       `json:"digest"`
	Nodes     int          `json:"nodes"`
	Edges     int          `json:"edges"`
	Width     float64      `json:"width"`
	Height    float64      `json:"height"`
	Graph     *graph.Graph `json:"graph,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// SnapshotFilter narrows ListSnapshots. Listed snapshots carry no graph.
type SnapshotFilter struct {
	DialogID string
	Since    *time.Time
	Limit    int
}

// DialogSummary is one row of ListDialogs.
type DialogSummary struct {
	DialogID  string    `json:"dialog_id"`
	Revisions int       `json:"revisions"`
	Latest    int64     `json:"latest_revision"`
	UpdatedAt time.Time `json:"updated_at"`
}
