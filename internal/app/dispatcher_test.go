package app

import (
	"testing"
	"time"

	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/platform"
	"github.com/e-grid/e-grid/internal/queue"
)

func TestTickRebuildsGridsImmediatelyOnMutation(t *testing.T) {
	srv, fake := newTestServer(t)
	srv.cfg.Timing.RebuildInterval = time.Hour // only a mutation should trigger a rebuild

	fake.SetWindows([]platform.Snapshot{
		{Handle: 1, ProcessID: 100, Title: "editor", Rect: geometry.Rect{Left: 0, Top: 0, Right: 160, Bottom: 90}},
	})

	srv.monitors = toGridMonitors(mustMonitors(t, fake))
	srv.q.Push(queue.RawEvent{Kind: queue.Create, Handle: 1, Timestamp: time.Now()})

	srv.lastRebuild = time.Now()
	before := srv.lastRebuild
	srv.tick(time.Now())

	if srv.virtual == nil {
		t.Fatal("expected a grid rebuild triggered by the mutation, not just the interval")
	}

	if !srv.lastRebuild.After(before) && srv.lastRebuild != before {
		t.Fatal("expected lastRebuild to advance after an immediate mutation-triggered rebuild")
	}
}

func TestTickPublishesPeriodicGridDumpWithoutMutation(t *testing.T) {
	srv, fake := newTestServer(t)
	srv.cfg.Timing.RebuildInterval = time.Hour
	srv.cfg.Timing.GridDumpEveryTicks = 3

	fake.SetWindows([]platform.Snapshot{
		{Handle: 1, ProcessID: 100, Title: "editor", Rect: geometry.Rect{Left: 0, Top: 0, Right: 160, Bottom: 90}},
	})
	srv.monitors = toGridMonitors(mustMonitors(t, fake))
	srv.rebuildGrids()

	sub, _, err := srv.bus.WindowDetails.Subscribe(8)
	if err != nil {
		t.Fatalf("subscribe to window details failed: %v", err)
	}
	defer sub.Close()

	now := time.Now()
	srv.lastRebuild = now
	srv.tick(now)
	srv.tick(now)
	srv.tick(now) // third tick with no intervening mutation should force a resync

	select {
	case <-sub.Ch:
	case <-time.After(time.Second):
		t.Fatal("expected a periodic window-details resync on the configured tick cadence")
	}
}

func mustMonitors(t *testing.T, fake *platform.Fake) []platform.Monitor {
	t.Helper()

	monitors, err := fake.Monitors()
	if err != nil {
		t.Fatalf("Monitors failed: %v", err)
	}

	return monitors
}
