package streaming

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

const subscriptionBuffer = 64

type subscription struct {
	ch     chan Event
	filter Filter
}

// offer delivers e unless the subscriber is behind.
func (s *subscription) offer(e Event) bool {
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

// MemoryHub is an in-process EventHub. It remembers the latest
// layout.changed event of every dialog, so a subscriber scoped to one
// dialog starts from the current revision instead of waiting for the next.
type MemoryHub struct {
	mu      sync.Mutex
	subs    map[*subscription]struct{}
	latest  map[string]Event
	dropped atomic.Uint64
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs:   make(map[*subscription]struct{}),
		latest: make(map[string]Event),
	}
}

// Publish fans event out to matching subscribers. Publishing never blocks:
// a subscriber with a full buffer misses the event (see Dropped).
func (h *MemoryHub) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if event.Type == EventLayoutChanged && event.DialogID != "" {
		h.latest[event.DialogID] = event
	}
	for sub := range h.subs {
		if sub.filter.Match(event) && !sub.offer(event) {
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers filter. With a DialogID, the dialog's latest
// layout.changed event (if any and if the filter accepts it) is queued
// first. The returned cancel func is idempotent; the channel stays open.
func (h *MemoryHub) Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	sub := &subscription{ch: make(chan Event, subscriptionBuffer), filter: filter}

	h.mu.Lock()
	if last, ok := h.latest[filter.DialogID]; ok && filter.Match(last) {
		sub.offer(last)
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
		})
	}
	return sub.ch, cancel, nil
}

// Subscribers reports the number of live subscriptions.
func (h *MemoryHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (h *MemoryHub) Dropped() uint64 { return h.dropped.Load() }

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.DialogID != "" && f.DialogID != e.DialogID {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, e.Type)
}
