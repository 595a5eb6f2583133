// Package config loads and validates the TOML configuration that tunes grid
// dimensions, timing, and the IPC fabric's buffer sizes.
package config

import "time"

// Config is the root configuration structure, serialized to/from TOML.
type Config struct {
	Grid    GridConfig    `toml:"grid"`
	Timing  TimingConfig  `toml:"timing"`
	IPC     IPCConfig     `toml:"ipc"`
	Logging LoggingConfig `toml:"logging"`
}

// GridConfig controls the per-monitor grid dimensions and coverage threshold.
type GridConfig struct {
	Rows               int     `toml:"rows"`
	Cols               int     `toml:"cols"`
	CoverageThreshold  float64 `toml:"coverage_threshold"`
	DenyListClassNames []string `toml:"deny_list_class_names"`
}

// TimingConfig controls the dispatcher's tick cadence and related intervals.
type TimingConfig struct {
	TickInterval       time.Duration `toml:"tick_interval"`
	RebuildInterval    time.Duration `toml:"rebuild_interval"`
	HeartbeatPeriod    time.Duration `toml:"heartbeat_period"`
	GridDumpEveryTicks int           `toml:"grid_dump_every_ticks"`
	QueueCapacity      int           `toml:"queue_capacity"`
	BatchSize          int           `toml:"batch_size"`
}

// IPCConfig controls the ring-buffer depth of each pub/sub service.
// MaxSubscribersPerService is validated and reported by "doctor" but does
// not reach the bus: the fan-out ceiling is the fixed busipc.MaxSubscribers.
type IPCConfig struct {
	MaxSubscribersPerService int `toml:"max_subscribers_per_service"`
	LargeBufferCapacity      int `toml:"large_buffer_capacity"`
	MediumBufferCapacity     int `toml:"medium_buffer_capacity"`
	SmallBufferCapacity      int `toml:"small_buffer_capacity"`
}

// LoggingConfig controls the logger's level, destination, and rotation.
type LoggingConfig struct {
	Level               string `toml:"level"`
	FilePath            string `toml:"file_path"`
	Structured          bool   `toml:"structured"`
	DisableFileLogging  bool   `toml:"disable_file_logging"`
	MaxFileSizeMB       int    `toml:"max_file_size_mb"`
	MaxBackups          int    `toml:"max_backups"`
	MaxAgeDays          int    `toml:"max_age_days"`
}
