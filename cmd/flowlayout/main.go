// Command flowlayout lays out adaptive dialog action trees and renders,
// lints, records and serves the resulting diagrams.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/rendis/flowlayout/internal/diagram"
	"github.com/rendis/flowlayout/internal/expressions"
	"github.com/rendis/flowlayout/internal/logging"
	"github.com/rendis/flowlayout/internal/store"
	"github.com/rendis/flowlayout/internal/validation"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0" ./cmd/flowlayout/
var version = "dev"

// CLI is the kong command tree.
type CLI struct {
	Settings string           `help:"Settings file." type:"path" default:"${settings}" env:"FLOWLAYOUT_SETTINGS"`
	Version  kong.VersionFlag `help:"Print version and exit."`

	Layout    LayoutCmd    `cmd:"" help:"Lay out a dialog and print the positioned graph as JSON."`
	Render    RenderCmd    `cmd:"" help:"Render a dialog as ASCII art, Mermaid or PNG."`
	Validate  ValidateCmd  `cmd:"" help:"Lint a dialog for structural and expression problems."`
	Serve     ServeCmd     `cmd:"" help:"Run the MCP server."`
	Snapshots SnapshotsCmd `cmd:"" help:"Inspect or prune recorded layouts."`
	Install   InstallCmd   `cmd:"" help:"Write default settings and fetch the mermaid-ascii renderer."`
}

// app carries what every command needs once flags and config are resolved.
type app struct {
	cfg      Config
	settings string
	logger   *slog.Logger
	stdin    io.Reader
	stdout   io.Writer
}

func newParser(cli *CLI, stdout, stderr io.Writer, exit func(int)) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("flowlayout"),
		kong.Description("Adaptive dialog flow layout engine."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(exit),
		kong.Vars{
			"version":  version,
			"settings": settingsPath(),
		},
	)
}

func newApp(settings string, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(settings, getenv)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.LogLevel)})
	return &app{
		cfg:      cfg,
		settings: settings,
		logger:   slog.New(logging.NewCorrelationHandler(handler)),
		stdin:    stdin,
		stdout:   stdout,
	}, nil
}

// checker builds the configured condition checker.
func (a *app) checker() (expressions.Checker, error) {
	return expressions.New(expressions.Dialect(a.cfg.Dialect), a.cfg.Strict)
}

// builder assembles a layout builder from config. opts are applied last.
func (a *app) builder(opts ...diagram.Option) (*diagram.Builder, error) {
	checker, err := a.checker()
	if err != nil {
		return nil, err
	}
	base := []diagram.Option{
		diagram.WithMetrics(a.cfg.Geometry),
		diagram.WithChecker(checker),
		diagram.WithLogger(a.logger),
	}
	return diagram.NewBuilder(append(base, opts...)...), nil
}

func (a *app) linter() (*validation.Linter, error) {
	checker, err := a.checker()
	if err != nil {
		return nil, err
	}
	return validation.NewLinter(nil, checker)
}

// openStore opens and migrates the snapshot database.
func (a *app) openStore(ctx context.Context) (*store.LibSQLStore, error) {
	s, err := store.NewLibSQLStore("file:" + a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func run(args []string, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	code := -1
	parser, err := newParser(&cli, stdout, stderr, func(c int) { code = c })
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	kctx, err := parser.Parse(args)
	if code >= 0 {
		// --help or --version already printed.
		return code
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	a, err := newApp(cli.Settings, getenv, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(a); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdin, os.Stdout, os.Stderr))
}
