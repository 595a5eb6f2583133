package client_test

import (
	"testing"
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
	"github.com/e-grid/e-grid/internal/client"
	derrors "github.com/e-grid/e-grid/internal/errors"
)

func testBus() *busipc.Bus {
	return busipc.NewBus(busipc.BufferSizes{Large: 16, Medium: 16, Small: 16}, nil)
}

func TestConnectSubscribesAndDeliversEvents(t *testing.T) {
	bus := testBus()

	received := make(chan busipc.WindowEvent, 1)
	c := client.New(bus, nil, client.WithCallbacks(client.Callbacks{
		OnWindowEvent: func(ev busipc.WindowEvent) { received <- ev },
	}))

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	bus.Events.Publish(busipc.WindowEvent{Hwnd: 42})

	select {
	case ev := <-received:
		if ev.Hwnd != 42 {
			t.Fatalf("got hwnd %d, want 42", ev.Hwnd)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for window event callback")
	}
}

func TestSendCommandRoundTrip(t *testing.T) {
	bus := testBus()
	c := client.New(bus, nil, client.WithCommandTimeout(time.Second))

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	sub, _, err := bus.Commands.Subscribe(4)
	if err != nil {
		t.Fatalf("subscribe to commands failed: %v", err)
	}
	defer sub.Close()

	go func() {
		cmd := <-sub.Ch
		bus.Responses.Publish(busipc.NewDataResponse(cmd.RequestID, []byte("ok")))
	}()

	resp, err := c.GetWindowList()
	if err != nil {
		t.Fatalf("GetWindowList failed: %v", err)
	}

	if resp.ResponseType != busipc.ResponseData {
		t.Fatalf("got response type %v, want ResponseData", resp.ResponseType)
	}
}

func TestSendCommandTimesOutWithNoResponder(t *testing.T) {
	bus := testBus()
	c := client.New(bus, nil, client.WithCommandTimeout(50*time.Millisecond))

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	_, err := c.GetWindowList()
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	if derrors.GetCode(err) != derrors.CodeCommandTimeout {
		t.Fatalf("got code %v, want CodeCommandTimeout", derrors.GetCode(err))
	}
}

func TestAssignToVirtualCellRejectsOutOfRangeCoordinates(t *testing.T) {
	bus := testBus()
	c := client.New(bus, nil, client.WithGridDimensions(8, 12))

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	_, err := c.AssignToVirtualCell(1, 8, 0, 300*time.Millisecond, 0)
	if err == nil {
		t.Fatal("expected out-of-range coordinate error, got nil")
	}

	if derrors.GetCode(err) != derrors.CodeInvalidCoordinates {
		t.Fatalf("got code %v, want CodeInvalidCoordinates", derrors.GetCode(err))
	}
}

func TestStartAnimationPublishesOnAnimationService(t *testing.T) {
	bus := testBus()

	received := make(chan busipc.AnimationCommand, 1)
	c := client.New(bus, nil, client.WithCallbacks(client.Callbacks{
		OnAnimation: func(cmd busipc.AnimationCommand) { received <- cmd },
	}))

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	c.StartAnimation(42, 400, 300, 800, 600, 500*time.Millisecond, 0)

	select {
	case cmd := <-received:
		if cmd.Hwnd != 42 || cmd.TargetX != 400 || cmd.TargetWidth != 800 {
			t.Fatalf("got %+v, want hwnd=42 targetX=400 width=800", cmd)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for animation command")
	}
}

func TestHeartbeatStaleFiresAfterMissedPeriods(t *testing.T) {
	bus := testBus()

	stale := make(chan int, 1)
	c := client.New(bus, nil,
		client.WithHeartbeatPeriod(10*time.Millisecond),
		client.WithCallbacks(client.Callbacks{
			OnHeartbeatStale: func(missed int) { stale <- missed },
		}),
	)

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case missed := <-stale:
		if missed < client.HeartbeatStaleAfter {
			t.Fatalf("got missed=%d before threshold %d", missed, client.HeartbeatStaleAfter)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for heartbeat-stale callback")
	}
}
