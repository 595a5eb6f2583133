package app

import (
	"testing"
	"time"

	"github.com/e-grid/e-grid/internal/config"
	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/platform"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *platform.Fake) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timing.TickInterval = time.Millisecond
	cfg.Timing.RebuildInterval = time.Millisecond
	cfg.Timing.HeartbeatPeriod = time.Millisecond

	fake := platform.NewFake()
	fake.SetMonitors([]platform.Monitor{
		{ID: 0, Bounds: geometry.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}, WorkArea: geometry.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}},
	})

	srv, err := NewServer(cfg, zap.NewNop(), fake)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	return srv, fake
}

func TestRunPerformsInitialDiscoveryAndRebuildsGrids(t *testing.T) {
	srv, fake := newTestServer(t)

	fake.SetWindows([]platform.Snapshot{
		{Handle: 1, ProcessID: 100, Title: "editor", Rect: geometry.Rect{Left: 0, Top: 0, Right: 800, Bottom: 600}},
	})

	done := make(chan error, 1)

	go func() { done <- srv.Run() }()

	// Give the dispatcher a few ticks to perform its initial rebuild before
	// requesting shutdown.
	time.Sleep(20 * time.Millisecond)
	srv.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if srv.virtual == nil {
		t.Fatal("expected virtual grid to be built after Run's initial rebuild")
	}

	if _, ok := srv.tr.Get(1); !ok {
		t.Fatal("expected initially enumerated window to be tracked")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	time.Sleep(10 * time.Millisecond)

	srv.Stop()
	srv.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after repeated Stop calls")
	}
}
