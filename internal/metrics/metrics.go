// Package metrics exposes layout, render, retention and tool-call counters
// in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rendis/flowlayout/internal/diagram"
)

// Registry holds all metrics for the application.
type Registry struct {
	// Layout Metrics
	LayoutPassesTotal  prometheus.Counter
	LayoutDuration     prometheus.Histogram
	LayoutNodes        prometheus.Histogram
	LayoutEdges        prometheus.Histogram
	LeafFallbacksTotal prometheus.Counter

	// Render Metrics
	RendersTotal   *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec

	// Snapshot Metrics
	PruneRunsTotal       *prometheus.CounterVec
	SnapshotsPrunedTotal prometheus.Counter

	// Tool Metrics
	ToolCallsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initLayoutMetrics()
	r.initRenderMetrics()
	r.initSnapshotMetrics()
	r.initToolMetrics()
	return r
}

func (r *Registry) initLayoutMetrics() {
	r.LayoutPassesTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "flowlayout_layout_passes_total",
		Help: "Total number of layout passes",
	})
	r.LayoutDuration = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "flowlayout_layout_duration_seconds",
		Help:    "Layout pass duration in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
	r.LayoutNodes = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "flowlayout_layout_nodes",
		Help:    "Number of nodes emitted per layout pass",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000},
	})
	r.LayoutEdges = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "flowlayout_layout_edges",
		Help:    "Number of edges emitted per layout pass",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000},
	})
	r.LeafFallbacksTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "flowlayout_leaf_fallbacks_total",
		Help: "Actions drawn as plain cards because their kind or fields were not understood",
	})
}

func (r *Registry) initRenderMetrics() {
	r.RendersTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlayout_renders_total",
			Help: "Total number of diagram renders",
		},
		[]string{"format", "status"},
	)
	r.RenderDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowlayout_render_duration_seconds",
			Help:    "Render duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"format"},
	)
}

func (r *Registry) initSnapshotMetrics() {
	r.PruneRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlayout_prune_runs_total",
			Help: "Total number of snapshot retention runs",
		},
		[]string{"status"},
	)
	r.SnapshotsPrunedTotal = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "flowlayout_snapshots_pruned_total",
		Help: "Total number of snapshots removed by retention",
	})
}

func (r *Registry) initToolMetrics() {
	r.ToolCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlayout_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveLayout records one layout pass.
func (r *Registry) ObserveLayout(s diagram.Stats) {
	r.LayoutPassesTotal.Inc()
	r.LayoutDuration.Observe(s.Duration.Seconds())
	r.LayoutNodes.Observe(float64(s.Nodes))
	r.LayoutEdges.Observe(float64(s.Edges))
	r.LeafFallbacksTotal.Add(float64(s.Fallbacks))
}

// ObservePrune records one retention run.
func (r *Registry) ObservePrune(removed int64, err error) {
	if err != nil {
		r.PruneRunsTotal.WithLabelValues("error").Inc()
		return
	}
	r.PruneRunsTotal.WithLabelValues("success").Inc()
	r.SnapshotsPrunedTotal.Add(float64(removed))
}

// RecordRender records a diagram render.
func (r *Registry) RecordRender(format string, err error, duration time.Duration) {
	r.RendersTotal.WithLabelValues(format, status(err)).Inc()
	r.RenderDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordToolCall records an MCP tool invocation.
func (r *Registry) RecordToolCall(tool string, err error) {
	r.ToolCallsTotal.WithLabelValues(tool, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ diagram.Observer = (*Registry)(nil)
