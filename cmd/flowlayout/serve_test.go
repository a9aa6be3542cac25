package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowlayout/internal/streaming"
)

type pruneCounter struct {
	runs    int
	removed int64
}

func (p *pruneCounter) ObservePrune(removed int64, err error) {
	p.runs++
	if err == nil {
		p.removed += removed
	}
}

func TestPruneEventsForwardsAndPublishes(t *testing.T) {
	ctx := context.Background()
	hub := streaming.NewMemoryHub()
	events, cancel, err := hub.Subscribe(ctx, streaming.Filter{Types: []string{streaming.EventPruned}})
	require.NoError(t, err)
	defer cancel()

	next := &pruneCounter{}
	obs := &pruneEvents{ctx: ctx, next: next, hub: hub, keep: 5}
	obs.ObservePrune(7, nil)
	obs.ObservePrune(0, errors.New("database is locked"))

	assert.Equal(t, 2, next.runs)
	assert.Equal(t, int64(7), next.removed)
	require.Len(t, events, 1, "failed runs publish nothing")
	evt := <-events
	assert.Equal(t, map[string]any{"removed": int64(7), "keep": 5}, evt.Payload)
}

func TestPruneEventsWithoutHub(t *testing.T) {
	next := &pruneCounter{}
	obs := &pruneEvents{ctx: context.Background(), next: next, keep: 5}
	assert.NotPanics(t, func() { obs.ObservePrune(3, nil) })
	assert.Equal(t, 1, next.runs)
}
