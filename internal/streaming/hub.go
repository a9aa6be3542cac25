// Package streaming fans layout events out to live subscribers, in process
// and over Server-Sent Events.
package streaming

import "context"

// Event types.
const (
	EventLayoutChanged = "layout.changed"
	EventPruned        = "snapshots.pruned"
)

// Event is a real-time notification about a dialog's recorded layouts.
type Event struct {
	Type     string `json:"type"`
	DialogID string `json:"dialog_id,omitempty"`
	Revision int64  `json:"revision,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// Filter specifies which events a subscriber wants to receive. Zero
// values match everything.
type Filter struct {
	DialogID string   `json:"dialog_id,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// EventHub provides pub/sub for layout events.
type EventHub interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error)
}
