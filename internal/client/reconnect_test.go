package client

import (
	"testing"
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
)

func testBus() *busipc.Bus {
	return busipc.NewBus(busipc.BufferSizes{Large: 16, Medium: 16, Small: 16}, nil)
}

// newFastReconnectClient builds a Client whose reconnection backoff is
// shrunk to milliseconds, so these tests don't pay the real 2s-per-attempt
// cost the production constants impose.
func newFastReconnectClient(bus *busipc.Bus, cb Callbacks) *Client {
	c := New(bus, nil, WithHeartbeatPeriod(10*time.Millisecond), WithCallbacks(cb))
	c.reconnectDelay = time.Millisecond

	return c
}

func TestShutdownHeartbeatTriggersReconnect(t *testing.T) {
	bus := testBus()

	events := make(chan busipc.WindowEvent, 1)
	c := newFastReconnectClient(bus, Callbacks{
		OnWindowEvent: func(ev busipc.WindowEvent) { events <- ev },
	})

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	bus.Heartbeat.Publish(busipc.Heartbeat{Flag: busipc.HeartbeatShutdown})

	deadline := time.After(time.Second)
	for c.Reconnects() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for reconnection after shutdown heartbeat")
		case <-time.After(time.Millisecond):
		}
	}

	// The reconnected session must still be live: a window event published
	// after reconnect should reach the callback through the fresh subscriber.
	bus.Events.Publish(busipc.WindowEvent{Hwnd: 7})

	select {
	case ev := <-events:
		if ev.Hwnd != 7 {
			t.Fatalf("got hwnd %d, want 7", ev.Hwnd)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a window event on the reconnected session")
	}
}

func TestReconnectReissuesGetWindowListAndGetGridState(t *testing.T) {
	bus := testBus()
	c := newFastReconnectClient(bus, Callbacks{})

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	cmdSub, _, err := bus.Commands.Subscribe(8)
	if err != nil {
		t.Fatalf("subscribe to commands failed: %v", err)
	}
	defer cmdSub.Close()

	bus.Heartbeat.Publish(busipc.Heartbeat{Flag: busipc.HeartbeatShutdown})

	seen := map[busipc.CommandType]bool{}
	deadline := time.After(time.Second)

	for !seen[busipc.CommandGetWindowList] || !seen[busipc.CommandGetGridState] {
		select {
		case cmd := <-cmdSub.Ch:
			seen[cmd.CommandType] = true
		case <-deadline:
			t.Fatalf("timed out waiting for implicit resync commands, got %v", seen)
		}
	}
}

func TestMissedHeartbeatsTriggerReconnect(t *testing.T) {
	bus := testBus()
	c := newFastReconnectClient(bus, Callbacks{})

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	deadline := time.After(time.Second)
	for c.Reconnects() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for reconnection after missed heartbeats")
		case <-time.After(time.Millisecond):
		}
	}
}
