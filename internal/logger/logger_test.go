package logger

import (
	"path/filepath"
	"testing"
)

func TestInitAndClose(t *testing.T) {
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "e_grid.log")

	if err := Init("debug", path, false, false, 1, 1, 1); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Get().Info("hello")

	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestGetFallsBackToDevelopment(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if Get() == nil {
		t.Fatal("expected a fallback logger")
	}
}
