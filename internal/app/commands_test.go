package app

import (
	"testing"
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/tracker"
	"github.com/e-grid/e-grid/internal/platform"
)

func newReadyServer(t *testing.T) (*Server, *platform.Fake) {
	t.Helper()

	srv, fake := newTestServer(t)

	fake.SetWindows([]platform.Snapshot{
		{Handle: 1, ProcessID: 100, Title: "editor", Rect: geometry.Rect{Left: 0, Top: 0, Right: 160, Bottom: 90}},
	})

	monitors, err := fake.Monitors()
	if err != nil {
		t.Fatalf("Monitors failed: %v", err)
	}
	srv.monitors = toGridMonitors(monitors)

	windows, err := fake.EnumerateWindows()
	if err != nil {
		t.Fatalf("EnumerateWindows failed: %v", err)
	}
	for _, w := range windows {
		srv.tr.AddOrUpdate(tracker.Handle(w.Handle), w.ProcessID, w.Rect, w.Title, 0, w.Attrs)
	}

	srv.rebuildGrids()

	return srv, fake
}

func TestHandleGetWindowListReturnsDataResponse(t *testing.T) {
	srv, _ := newReadyServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{RequestID: 1, CommandType: busipc.CommandGetWindowList})

	if resp.ResponseType != busipc.ResponseData {
		t.Fatalf("got response type %v, want ResponseData", resp.ResponseType)
	}
	if resp.RequestID != 1 {
		t.Fatalf("got request id %d, want 1", resp.RequestID)
	}
}

func TestHandleGetGridStateFailsBeforeFirstRebuild(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{RequestID: 2, CommandType: busipc.CommandGetGridState})

	if resp.ResponseType != busipc.ResponseError {
		t.Fatalf("got response type %v, want ResponseError", resp.ResponseType)
	}
}

func TestHandleGetGridStateSucceedsAfterRebuild(t *testing.T) {
	srv, _ := newReadyServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{RequestID: 3, CommandType: busipc.CommandGetGridState})

	if resp.ResponseType != busipc.ResponseData {
		t.Fatalf("got response type %v, want ResponseData", resp.ResponseType)
	}
}

func TestHandleAssignToVirtualCellStartsAnimation(t *testing.T) {
	srv, _ := newReadyServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{
		RequestID:   4,
		CommandType: busipc.CommandAssignToVirtualCell,
		Hwnd:        1,
		TargetRow:   0,
		TargetCol:   0,
	})

	if resp.ResponseType != busipc.ResponseAck {
		t.Fatalf("got response type %v, want ResponseAck", resp.ResponseType)
	}

	if updates := srv.engine.Advance(time.Now().Add(time.Hour)); len(updates) == 0 {
		t.Fatal("expected an in-flight animation after AssignToVirtualCell")
	}
}

func TestHandleAssignToVirtualCellRejectsUntrackedWindow(t *testing.T) {
	srv, _ := newReadyServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{
		RequestID:   5,
		CommandType: busipc.CommandAssignToVirtualCell,
		Hwnd:        999,
	})

	if resp.ResponseType != busipc.ResponseError {
		t.Fatalf("got response type %v, want ResponseError", resp.ResponseType)
	}
}

func TestHandleAssignToMonitorCellRejectsUnknownMonitor(t *testing.T) {
	srv, _ := newReadyServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{
		RequestID:   6,
		CommandType: busipc.CommandAssignToMonitorCell,
		Hwnd:        1,
		MonitorID:   99,
	})

	if resp.ResponseType != busipc.ResponseError {
		t.Fatalf("got response type %v, want ResponseError", resp.ResponseType)
	}
}

func TestHandleFocusWindowDelegatesToWindowSystem(t *testing.T) {
	srv, fake := newReadyServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{RequestID: 7, CommandType: busipc.CommandFocusWindow, Hwnd: 1})

	if resp.ResponseType != busipc.ResponseAck {
		t.Fatalf("got response type %v, want ResponseAck", resp.ResponseType)
	}

	requests := fake.FocusRequests()
	if len(requests) != 1 || requests[0] != 1 {
		t.Fatalf("got focus requests %v, want [1]", requests)
	}
}

func TestHandleSaveLayoutThenApplyLayoutRoundTrips(t *testing.T) {
	srv, _ := newReadyServer(t)

	save := srv.handleCommand(busipc.WindowCommand{RequestID: 8, CommandType: busipc.CommandSaveLayout, LayoutID: 1})
	if save.ResponseType != busipc.ResponseAck {
		t.Fatalf("save: got response type %v, want ResponseAck", save.ResponseType)
	}

	apply := srv.handleCommand(busipc.WindowCommand{RequestID: 9, CommandType: busipc.CommandApplyLayout, LayoutID: 1})
	if apply.ResponseType != busipc.ResponseAck {
		t.Fatalf("apply: got response type %v, want ResponseAck", apply.ResponseType)
	}
}

func TestHandleApplyLayoutFailsForUnknownLayout(t *testing.T) {
	srv, _ := newReadyServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{RequestID: 10, CommandType: busipc.CommandApplyLayout, LayoutID: 42})

	if resp.ResponseType != busipc.ResponseError {
		t.Fatalf("got response type %v, want ResponseError", resp.ResponseType)
	}
}

func TestHandleApplyLayoutWarnsAboutMissingWindows(t *testing.T) {
	srv, fake := newReadyServer(t)

	save := srv.handleCommand(busipc.WindowCommand{RequestID: 20, CommandType: busipc.CommandSaveLayout, LayoutID: 2})
	if save.ResponseType != busipc.ResponseAck {
		t.Fatalf("save: got response type %v, want ResponseAck", save.ResponseType)
	}

	// The saved window disappears before the layout is replayed.
	fake.SetWindows(nil)
	srv.tr.Remove(tracker.Handle(1))

	apply := srv.handleCommand(busipc.WindowCommand{RequestID: 21, CommandType: busipc.CommandApplyLayout, LayoutID: 2})

	if apply.ResponseType != busipc.ResponseData {
		t.Fatalf("got response type %v, want ResponseData (warning payload)", apply.ResponseType)
	}
	if apply.PayloadLen == 0 {
		t.Fatal("expected a non-empty warning payload naming the skipped window")
	}
}

func TestDrainAnimationCommandsStartsAnimationDirectly(t *testing.T) {
	srv, _ := newReadyServer(t)

	srv.animationSub.Close()

	sub, _, err := srv.bus.Animation.Subscribe(4)
	if err != nil {
		t.Fatalf("subscribe to animation service failed: %v", err)
	}
	defer sub.Close()

	srv.animationSub = sub

	srv.bus.Animation.Publish(busipc.AnimationCommand{
		Hwnd: 1, TargetX: 400, TargetY: 300, TargetWidth: 400, TargetHeight: 300, DurationMs: 100,
	})

	srv.drainAnimationCommands()

	if !srv.engine.Active(tracker.Handle(1)) {
		t.Fatal("expected an active animation for handle 1 after draining GRID_ANIMATION")
	}
}

func TestHandleCommandRejectsUnknownCommandType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := srv.handleCommand(busipc.WindowCommand{RequestID: 11, CommandType: busipc.CommandType(999)})

	if resp.ResponseType != busipc.ResponseError {
		t.Fatalf("got response type %v, want ResponseError", resp.ResponseType)
	}
}

func TestDrainCommandsProducesOneResponsePerCommand(t *testing.T) {
	srv, _ := newReadyServer(t)

	sub, _, err := srv.bus.Responses.Subscribe(4)
	if err != nil {
		t.Fatalf("subscribe to responses failed: %v", err)
	}
	defer sub.Close()

	srv.bus.Commands.Publish(busipc.WindowCommand{RequestID: 20, CommandType: busipc.CommandGetWindowList})
	srv.bus.Commands.Publish(busipc.WindowCommand{RequestID: 21, CommandType: busipc.CommandGetMonitorList})

	// Give the bus a moment to deliver onto srv.commandSub.Ch before draining.
	time.Sleep(10 * time.Millisecond)
	srv.drainCommands()

	seen := map[uint64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case resp := <-sub.Ch:
			seen[resp.RequestID] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for drained response")
		}
	}

	if !seen[20] || !seen[21] {
		t.Fatalf("got responses %v, want both 20 and 21", seen)
	}
}
