package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	derrors "github.com/e-grid/e-grid/internal/errors"
)

// LoadResult carries the outcome of loading a configuration file, including
// a validation error that a caller may choose to fall back from rather than
// abort on (mirroring the CLI's "continue with defaults" behavior).
type LoadResult struct {
	Config          *Config
	ConfigPath      string
	ValidationError error
}

// Load reads and parses the TOML file at path, overlaying it onto
// DefaultConfig so unset fields keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return nil, derrors.Wrapf(err, derrors.CodeInvalidConfig, "failed to read config file %s", path)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, derrors.Wrapf(err, derrors.CodeInvalidConfig, "failed to parse config file %s", path)
	}

	return cfg, nil
}

// LoadWithValidation loads the configuration and validates it, returning a
// default configuration alongside the validation error when validation
// fails so callers can choose to continue in a degraded mode.
func LoadWithValidation(path string) LoadResult {
	cfg, err := Load(path)
	if err != nil {
		return LoadResult{Config: DefaultConfig(), ConfigPath: path, ValidationError: err}
	}

	if err := Validate(cfg); err != nil {
		return LoadResult{Config: DefaultConfig(), ConfigPath: path, ValidationError: err}
	}

	return LoadResult{Config: cfg, ConfigPath: path}
}

// Validate checks that the configuration's values make physical sense.
func Validate(cfg *Config) error {
	if cfg.Grid.Rows <= 0 || cfg.Grid.Cols <= 0 {
		return derrors.Newf(derrors.CodeInvalidConfig, "grid dimensions must be positive, got %dx%d", cfg.Grid.Rows, cfg.Grid.Cols)
	}

	if cfg.Grid.CoverageThreshold < 0 || cfg.Grid.CoverageThreshold > 1 {
		return derrors.Newf(derrors.CodeInvalidConfig, "coverage_threshold must be in [0,1], got %v", cfg.Grid.CoverageThreshold)
	}

	if cfg.Timing.TickInterval <= 0 {
		return derrors.New(derrors.CodeInvalidConfig, "tick_interval must be positive")
	}

	if cfg.Timing.QueueCapacity <= 0 {
		return derrors.New(derrors.CodeInvalidConfig, "queue_capacity must be positive")
	}

	if cfg.Timing.BatchSize <= 0 {
		return derrors.New(derrors.CodeInvalidConfig, "batch_size must be positive")
	}

	if cfg.IPC.MaxSubscribersPerService <= 0 {
		return derrors.New(derrors.CodeInvalidConfig, "max_subscribers_per_service must be positive")
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return derrors.Newf(derrors.CodeInvalidConfig, "unrecognized log level %q", cfg.Logging.Level)
	}

	return nil
}

// String renders a short human-readable summary, used by `e_grid doctor`.
func (c *Config) String() string {
	return fmt.Sprintf(
		"grid=%dx%d threshold=%.2f tick=%s ipc(max_subs=%d)",
		c.Grid.Rows, c.Grid.Cols, c.Grid.CoverageThreshold, c.Timing.TickInterval, c.IPC.MaxSubscribersPerService,
	)
}
