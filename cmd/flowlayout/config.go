package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rendis/flowlayout/internal/boundary"
	"github.com/rendis/flowlayout/internal/scheduler"
	"github.com/rendis/flowlayout/pkg/schema"
)

// Config holds all flowlayout configuration.
// Priority: env vars > settings.yaml > defaults.
type Config struct {
	DBPath   string `yaml:"db_path" validate:"required"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Dialect selects the condition checker; Strict turns unknown
	// identifiers into diagnostics.
	Dialect string `yaml:"dialect" validate:"oneof=cel expr"`
	Strict  bool   `yaml:"strict"`

	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	ListenAddr  string `yaml:"listen_addr" validate:"required,hostname_port"`

	PruneCron     string `yaml:"prune_cron"`
	KeepRevisions int    `yaml:"keep_revisions" validate:"gte=1"`

	BinDir   string           `yaml:"bin_dir"`
	Geometry boundary.Metrics `yaml:"geometry"`
}

func defaultConfig() Config {
	dir := flowlayoutDir()
	return Config{
		DBPath:        filepath.Join(dir, "flowlayout.db"),
		LogLevel:      "info",
		Dialect:       "cel",
		ListenAddr:    ":4100",
		KeepRevisions: 20,
		BinDir:        filepath.Join(dir, "bin"),
		Geometry:      boundary.DefaultMetrics(),
	}
}

func flowlayoutDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowlayout"
	}
	return filepath.Join(home, ".flowlayout")
}

func settingsPath() string {
	return filepath.Join(flowlayoutDir(), "settings.yaml")
}

// loadConfig layers path and the environment over the defaults. A missing
// settings file is not an error.
func loadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := defaultConfig()

	// Layer 2: settings.yaml. Keys it omits keep their defaults.
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, schema.NewErrorf(schema.ErrCodeInput, "invalid settings file %s: %s", path, err.Error()).WithCause(err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, schema.NewErrorf(schema.ErrCodeInput, "read settings file %s", path).WithCause(err)
	}

	// Layer 3: env vars override.
	if v := getenv("FLOWLAYOUT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("FLOWLAYOUT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("FLOWLAYOUT_DIALECT"); v != "" {
		cfg.Dialect = strings.ToLower(v)
	}
	if v := getenv("FLOWLAYOUT_STRICT"); v != "" {
		cfg.Strict = v == "true" || v == "1"
	}
	if v := getenv("FLOWLAYOUT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := getenv("FLOWLAYOUT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv("FLOWLAYOUT_PRUNE_CRON"); v != "" {
		cfg.PruneCron = v
	}
	if v := getenv("FLOWLAYOUT_KEEP_REVISIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.KeepRevisions = n
		}
	}
	if v := getenv("FLOWLAYOUT_BIN_DIR"); v != "" {
		cfg.BinDir = v
	}

	return cfg, validateConfig(cfg)
}

var validate = validator.New()

// validateConfig checks struct tags and the prune schedule.
func validateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
		}
		msgs := make([]string, 0, len(verrs))
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Namespace()+": failed "+fe.Tag())
			fields = append(fields, fe.Namespace())
		}
		return schema.NewError(schema.ErrCodeValidation, "invalid configuration: "+strings.Join(msgs, "; ")).
			WithCause(err).
			WithDetails(map[string]any{"fields": fields})
	}
	if cfg.PruneCron != "" {
		if _, err := scheduler.ParseSpec(cfg.PruneCron); err != nil {
			return schema.NewError(schema.ErrCodeValidation, "invalid configuration: prune_cron: "+err.Error()).WithCause(err)
		}
	}
	return nil
}
