// Package scheduler runs the snapshot retention job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/flowlayout/internal/store"
)

// DefaultInterval is how often the pruner checks whether a run is due.
const DefaultInterval = 60 * time.Second

// PruneObserver is told about every retention run.
type PruneObserver interface {
	ObservePrune(removed int64, err error)
}

// Pruner trims stored snapshots to the newest Keep revisions per dialog
// whenever its cron expression fires.
type Pruner struct {
	store    store.Store
	keep     int
	schedule cron.Schedule
	spec     string
	observer PruneObserver
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	runMu   sync.Mutex
	nextRun time.Time
}

// NewPruner creates a Pruner. spec is a five-field cron expression.
// observer may be nil.
func NewPruner(s store.Store, spec string, keep int, observer PruneObserver, logger *slog.Logger) (*Pruner, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	schedule, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pruner{
		store:    s,
		keep:     keep,
		schedule: schedule,
		spec:     spec,
		observer: observer,
		logger:   logger,
		interval: DefaultInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSpec parses a five-field cron expression.
func ParseSpec(spec string) (cron.Schedule, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	return schedule, nil
}

// NextRun returns when the next prune is due.
func (p *Pruner) NextRun() time.Time {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.nextRun
}

// Start launches the background loop.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return fmt.Errorf("pruner already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	p.runMu.Lock()
	p.nextRun = p.schedule.Next(p.now())
	p.runMu.Unlock()

	go p.loop(loopCtx)
	p.logger.Info("snapshot pruner started",
		slog.String("schedule", p.spec),
		slog.Int("keep", p.keep),
		slog.Time("next_run", p.NextRun()),
	)
	return nil
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs a prune when one is due and schedules the next.
func (p *Pruner) tick(ctx context.Context) {
	now := p.now()
	p.runMu.Lock()
	due := !p.nextRun.After(now)
	if due {
		p.nextRun = p.schedule.Next(now)
	}
	p.runMu.Unlock()

	if due {
		_, _ = p.RunOnce(ctx)
	}
}

// RunOnce prunes immediately, outside the schedule.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	removed, err := p.store.PruneSnapshots(ctx, p.keep)
	if p.observer != nil {
		p.observer.ObservePrune(removed, err)
	}
	if err != nil {
		p.logger.Error("snapshot prune failed", slog.String("error", err.Error()))
		return 0, err
	}
	p.logger.Info("snapshots pruned", slog.Int64("removed", removed), slog.Int("keep", p.keep))
	return removed, nil
}

// Stop gracefully shuts down the pruner.
func (p *Pruner) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.logger.Info("snapshot pruner stopped")
	return nil
}
