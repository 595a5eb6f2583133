package config

import "time"

// Defaults matching the values named throughout the specification.
const (
	DefaultGridRows              = 8
	DefaultGridCols              = 12
	DefaultCoverageThreshold     = 0.30
	DefaultTickInterval          = 50 * time.Millisecond
	DefaultRebuildInterval       = 2 * time.Second
	DefaultHeartbeatPeriod       = 1 * time.Second
	DefaultGridDumpEveryTicks    = 40
	DefaultQueueCapacity         = 4096
	DefaultBatchSize             = 256
	DefaultMaxSubscribers        = 8
	DefaultLargeBufferCapacity   = 4096
	DefaultMediumBufferCapacity  = 1024
	DefaultSmallBufferCapacity   = 256
	DefaultMaxFileSizeMB         = 10
	DefaultMaxBackups            = 5
	DefaultMaxAgeDays            = 30
)

// DefaultDenyListClassNames excludes common system-generated top-level
// windows from manageability, per the open manageability-filter question in
// the design notes. This is the explicit, shipped answer to that question.
var DefaultDenyListClassNames = []string{
	"Progman",
	"Button",
	"Shell_TrayWnd",
	"Shell_SecondaryTrayWnd",
	"DV2ControlHost",
	"MSCTFIME UI",
	"Windows.UI.Core.CoreWindow",
	"ApplicationManager_DesktopShellWindow",
	"ForegroundStaging",
}

// DefaultConfig returns the baseline configuration used when no file is
// present or a field is left unset.
func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			Rows:               DefaultGridRows,
			Cols:               DefaultGridCols,
			CoverageThreshold:  DefaultCoverageThreshold,
			DenyListClassNames: append([]string(nil), DefaultDenyListClassNames...),
		},
		Timing: TimingConfig{
			TickInterval:       DefaultTickInterval,
			RebuildInterval:    DefaultRebuildInterval,
			HeartbeatPeriod:    DefaultHeartbeatPeriod,
			GridDumpEveryTicks: DefaultGridDumpEveryTicks,
			QueueCapacity:      DefaultQueueCapacity,
			BatchSize:          DefaultBatchSize,
		},
		IPC: IPCConfig{
			MaxSubscribersPerService: DefaultMaxSubscribers,
			LargeBufferCapacity:      DefaultLargeBufferCapacity,
			MediumBufferCapacity:     DefaultMediumBufferCapacity,
			SmallBufferCapacity:      DefaultSmallBufferCapacity,
		},
		Logging: LoggingConfig{
			Level:         "info",
			MaxFileSizeMB: DefaultMaxFileSizeMB,
			MaxBackups:    DefaultMaxBackups,
			MaxAgeDays:    DefaultMaxAgeDays,
		},
	}
}
