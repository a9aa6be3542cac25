package mcp

import (
	"sort"
	"sync"
)

// WatchRegistry maps dialog IDs to the MCP sessions that want layout change
// notifications for them. Sessions are added by flow.layout calls that carry
// a dialog_id and by the explicit watch action of flow.snapshots.
type WatchRegistry struct {
	mu       sync.RWMutex
	watchers map[string]map[string]struct{} // dialogID → sessionIDs
}

// NewWatchRegistry creates a new empty WatchRegistry.
func NewWatchRegistry() *WatchRegistry {
	return &WatchRegistry{watchers: make(map[string]map[string]struct{})}
}

// Watch subscribes sessionID to changes of dialogID. Repeated calls are no-ops.
func (r *WatchRegistry) Watch(dialogID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.watchers[dialogID]
	if !ok {
		set = make(map[string]struct{})
		r.watchers[dialogID] = set
	}
	set[sessionID] = struct{}{}
}

// Unwatch drops a single subscription.
func (r *WatchRegistry) Unwatch(dialogID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drop(dialogID, sessionID)
}

// Watchers returns the sessions subscribed to dialogID in sorted order.
func (r *WatchRegistry) Watchers(dialogID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.watchers[dialogID]
	out := make([]string, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

// Remove deletes every subscription held by sessionID.
// Called when a session disconnects.
func (r *WatchRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for dialogID := range r.watchers {
		r.drop(dialogID, sessionID)
	}
}

func (r *WatchRegistry) drop(dialogID, sessionID string) {
	set, ok := r.watchers[dialogID]
	if !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.watchers, dialogID)
	}
}
