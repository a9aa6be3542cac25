package diagram

import (
	"log/slog"
	"time"

	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/dialog"
)

// ConditionChecker reports problems in a condition expression. A nil
// error means the expression is acceptable.
type ConditionChecker interface {
	Check(expression string) error
}

// Observer receives one Stats value per completed Build.
type Observer interface {
	ObserveLayout(stats Stats)
}

// Stats summarises one layout pass.
type Stats struct {
	RunID     string
	DialogID  string
	Duration  time.Duration
	Nodes     int
	Edges     int
	Fallbacks int
	Width     float64
	Height    float64
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry sets the construct and widget registry. The builder keeps
// its own copy, so later changes to r do not leak into it.
func WithRegistry(r *dialog.Registry) Option {
	return func(b *Builder) { b.registry = r.Clone() }
}

// WithMetrics overrides the geometry constants.
func WithMetrics(m boundary.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithChecker enables condition diagnostics on if/switch headers.
func WithChecker(c ConditionChecker) Option {
	return func(b *Builder) { b.checker = c }
}

// WithObserver registers a stats observer.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}
