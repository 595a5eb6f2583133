package app

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/e-grid/e-grid/internal/busipc"
	"github.com/e-grid/e-grid/internal/domain/tracker"
)

// handleFocusChange implements the strict Focused/Defocused alternation
// invariant: a new foreground handle first defocuses whichever handle was
// previously focused, then focuses itself. A redundant foreground event for
// the already-focused handle is a no-op.
func (s *Server) handleFocusChange(handle tracker.Handle, now time.Time) {
	if s.hasFocus && s.focused == handle {
		return
	}

	if s.hasFocus {
		s.publishFocusEvent(busipc.FocusEventDefocused, s.focused, now)
	}

	s.focused = handle
	s.hasFocus = true

	s.publishFocusEvent(busipc.FocusEventFocused, handle, now)
}

func (s *Server) publishFocusEvent(eventType busipc.FocusEventType, handle tracker.Handle, now time.Time) {
	info, _ := s.tr.Get(handle)

	appNameHash := xxhash.Sum64String(fmt.Sprintf("Process_%d", info.ProcessID))
	titleHash := xxhash.Sum64String(info.Title)

	s.bus.FocusEvents.Publish(busipc.WindowFocusEvent{
		ProtocolVersion: busipc.ProtocolVersion,
		EventType:       eventType,
		Hwnd:            uint64(handle),
		ProcessID:       info.ProcessID,
		Timestamp:       uint64(now.UnixMilli()),
		AppNameHash:     appNameHash,
		WindowTitleHash: titleHash,
	})
}
