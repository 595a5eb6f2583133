package platform

import (
	"testing"
	"time"

	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/queue"
)

func TestFakeEnumerateWindowsReturnsConfiguredSet(t *testing.T) {
	fake := NewFake()
	fake.SetWindows([]Snapshot{{Handle: 1, Rect: geometry.Rect{Right: 100, Bottom: 100}, Title: "A"}})

	got, err := fake.EnumerateWindows()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Handle != 1 {
		t.Fatalf("unexpected snapshots: %+v", got)
	}
}

func TestFakeRunDeliversEmittedEvents(t *testing.T) {
	fake := NewFake()

	received := make(chan queue.RawEvent, 1)

	go fake.Run(func(ev queue.RawEvent) {
		received <- ev
	})

	// Give Run a moment to register the sink.
	time.Sleep(10 * time.Millisecond)

	fake.Emit(queue.RawEvent{Kind: queue.Create, Handle: 42})

	select {
	case ev := <-received:
		if ev.Handle != 42 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for emitted event")
	}

	fake.Stop()
}

func TestFakeRepositionRecordsCalls(t *testing.T) {
	fake := NewFake()
	fake.SetWindows([]Snapshot{{Handle: 1, Rect: geometry.Rect{}}})

	target := geometry.Rect{Left: 10, Top: 10, Right: 110, Bottom: 110}
	if err := fake.Reposition(1, target); err != nil {
		t.Fatal(err)
	}

	reps := fake.Repositions()
	if len(reps) != 1 || reps[0].Rect != target {
		t.Fatalf("unexpected repositions: %+v", reps)
	}

	snaps, _ := fake.EnumerateWindows()
	if snaps[0].Rect != target {
		t.Fatalf("expected fake window rect to update, got %+v", snaps[0].Rect)
	}
}

func TestFakeStopIsIdempotent(t *testing.T) {
	fake := NewFake()

	done := make(chan struct{})
	go func() {
		fake.Run(func(queue.RawEvent) {})
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	fake.Stop()
	fake.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
