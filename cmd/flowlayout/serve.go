package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rendis/flowlayout/internal/diagram"
	"github.com/rendis/flowlayout/internal/metrics"
	"github.com/rendis/flowlayout/internal/scheduler"
	"github.com/rendis/flowlayout/internal/streaming"
	"github.com/rendis/flowlayout/pkg/mcp"
)

// ServeCmd runs the MCP server with metrics and snapshot retention. The
// http transport also streams recorded layout changes at /events.
type ServeCmd struct {
	Transport string `enum:"stdio,http" default:"stdio" help:"MCP transport: stdio or streamable http."`
	Addr      string `help:"Listen address for the http transport; defaults to listen_addr."`
	NoStore   bool   `help:"Run without the snapshot database."`
}

func (c *ServeCmd) Run(ctx context.Context, a *app) error {
	reg := metrics.NewRegistry()

	b, err := a.builder(diagram.WithObserver(reg))
	if err != nil {
		return err
	}
	linter, err := a.linter()
	if err != nil {
		return err
	}
	deps := mcp.FlowServerDeps{
		Builder:  b,
		Linter:   linter,
		Recorder: reg,
		BinDir:   a.cfg.BinDir,
		Logger:   a.logger,
	}

	var hub *streaming.MemoryHub
	if c.Transport == "http" {
		hub = streaming.NewMemoryHub()
		deps.Hub = hub
	}

	if !c.NoStore {
		s, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		deps.Store = s

		if a.cfg.PruneCron != "" {
			obs := &pruneEvents{ctx: ctx, next: reg, keep: a.cfg.KeepRevisions}
			if hub != nil {
				obs.hub = hub
			}
			p, err := scheduler.NewPruner(s, a.cfg.PruneCron, a.cfg.KeepRevisions, obs, a.logger)
			if err != nil {
				return err
			}
			if err := p.Start(ctx); err != nil {
				return err
			}
			defer p.Stop()
		}
	}

	srv := mcp.NewFlowServer(deps)

	addr := c.Addr
	if addr == "" {
		addr = a.cfg.ListenAddr
	}
	if a.cfg.MetricsAddr != "" && (c.Transport != "http" || a.cfg.MetricsAddr != addr) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", reg.Handler())
		stop := listen(ctx, a.logger, a.cfg.MetricsAddr, mux)
		defer stop()
	}

	if c.Transport == "http" {
		mux := http.NewServeMux()
		mux.Handle("/mcp", srv.HTTPHandler())
		events := streaming.Handler(hub, a.logger)
		mux.Handle("GET /events", events)
		mux.Handle("GET /events/{dialog}", events)
		if a.cfg.MetricsAddr == addr {
			mux.Handle("/metrics", reg.Handler())
		}
		a.logger.Info("serving MCP over http", slog.String("addr", addr))
		stop := listen(ctx, a.logger, addr, mux)
		<-ctx.Done()
		stop()
		return nil
	}

	a.logger.Info("serving MCP over stdio")
	return srv.Serve(ctx)
}

// pruneEvents forwards retention runs to the metrics registry and, when
// events are served, to the hub.
type pruneEvents struct {
	ctx  context.Context
	next scheduler.PruneObserver
	hub  streaming.EventHub
	keep int
}

func (p *pruneEvents) ObservePrune(removed int64, err error) {
	p.next.ObservePrune(removed, err)
	if err != nil || p.hub == nil {
		return
	}
	_ = p.hub.Publish(p.ctx, streaming.Event{
		Type:    streaming.EventPruned,
		Payload: map[string]any{"removed": removed, "keep": p.keep},
	})
}

// listen serves h on addr in the background. The returned func shuts the
// server down.
func listen(ctx context.Context, logger *slog.Logger, addr string, h http.Handler) func() {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with ctx rather than holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http listener failed", slog.String("addr", addr), slog.String("error", err.Error()))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}
}
