package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grid.Rows != DefaultGridRows {
		t.Fatalf("expected default rows, got %d", cfg.Grid.Rows)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "e_grid.toml")

	body := "[grid]\nrows = 4\ncols = 6\ncoverage_threshold = 0.5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Grid.Rows != 4 || cfg.Grid.Cols != 6 {
		t.Fatalf("expected overlaid grid dims, got %dx%d", cfg.Grid.Rows, cfg.Grid.Cols)
	}
	if cfg.Timing.TickInterval != DefaultTickInterval {
		t.Fatalf("expected default tick interval to survive overlay, got %v", cfg.Timing.TickInterval)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.CoverageThreshold = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for out-of-range threshold")
	}
}

func TestServiceReloadNotifiesWatchers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "e_grid.toml")
	if err := os.WriteFile(path, []byte("[grid]\nrows = 10\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	svc := NewService(DefaultConfig(), path)
	ch := make(chan *Config, 1)
	svc.Watch(ch)

	if err := svc.Reload(path); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	select {
	case got := <-ch:
		if got.Grid.Rows != 10 {
			t.Fatalf("expected reloaded rows=10, got %d", got.Grid.Rows)
		}
	default:
		t.Fatal("expected watcher notification")
	}

	if svc.Get().Grid.Rows != 10 {
		t.Fatal("expected Get() to reflect reloaded config")
	}
}
