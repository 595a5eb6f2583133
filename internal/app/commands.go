package app

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
	"github.com/e-grid/e-grid/internal/domain/animation"
	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/tracker"
	"github.com/e-grid/e-grid/internal/trace"
	"go.uber.org/zap"
)

// drainCommands services every WindowCommand currently queued on the
// ServiceCommands subscriber, producing exactly one WindowResponse per
// command, per spec.md §4.7. Each command is assigned its own trace ID so
// the resulting log lines (including any error path inside handleCommand)
// can be correlated back to the originating request, independent of the
// request_id a misbehaving client might reuse.
func (s *Server) drainCommands() {
	for {
		select {
		case cmd := <-s.commandSub.Ch:
			traceID := trace.NewID()

			resp := s.handleCommand(cmd)
			if resp.ResponseType == busipc.ResponseError {
				s.log.Warn("command rejected",
					zap.String("trace_id", traceID.String()),
					zap.Uint64("request_id", cmd.RequestID),
					zap.Uint32("command_type", uint32(cmd.CommandType)))
			}

			s.bus.Responses.Publish(resp)
		default:
			return
		}
	}
}

func (s *Server) handleCommand(cmd busipc.WindowCommand) busipc.WindowResponse {
	switch cmd.CommandType {
	case busipc.CommandGetWindowList:
		return s.handleGetWindowList(cmd)
	case busipc.CommandGetGridState:
		return s.handleGetGridState(cmd)
	case busipc.CommandGetMonitorList:
		return s.handleGetMonitorList(cmd)
	case busipc.CommandAssignToVirtualCell:
		return s.handleAssignToVirtualCell(cmd)
	case busipc.CommandAssignToMonitorCell:
		return s.handleAssignToMonitorCell(cmd)
	case busipc.CommandStartAnimation:
		return s.handleStartAnimation(cmd)
	case busipc.CommandSaveLayout:
		return s.handleSaveLayout(cmd)
	case busipc.CommandApplyLayout:
		return s.handleApplyLayout(cmd)
	case busipc.CommandFocusWindow:
		return s.handleFocusWindow(cmd)
	default:
		return errorResponse(cmd.RequestID, "unknown command type")
	}
}

func errorResponse(requestID uint64, reason string) busipc.WindowResponse {
	r := busipc.NewDataResponse(requestID, []byte(reason))
	r.ResponseType = busipc.ResponseError

	return r
}

func ackResponse(requestID uint64) busipc.WindowResponse {
	return busipc.WindowResponse{ProtocolVersion: busipc.ProtocolVersion, RequestID: requestID, ResponseType: busipc.ResponseAck}
}

func (s *Server) handleGetWindowList(cmd busipc.WindowCommand) busipc.WindowResponse {
	windows := s.tr.Snapshot()

	payload := make([]byte, 0, busipc.MaxPayload)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(windows)))

	for _, w := range windows {
		if len(payload)+8 > busipc.MaxPayload {
			break
		}

		payload = binary.LittleEndian.AppendUint64(payload, uint64(w.Handle))
	}

	return busipc.NewDataResponse(cmd.RequestID, payload)
}

func (s *Server) handleGetGridState(cmd busipc.WindowCommand) busipc.WindowResponse {
	if s.virtual == nil {
		return errorResponse(cmd.RequestID, "grid not yet built")
	}

	payload := make([]byte, 0, busipc.MaxPayload)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(s.virtual.Rows))
	payload = binary.LittleEndian.AppendUint32(payload, uint32(s.virtual.Cols))

	for row := 0; row < s.virtual.Rows; row++ {
		for col := 0; col < s.virtual.Cols; col++ {
			if len(payload)+1 > busipc.MaxPayload {
				return busipc.NewDataResponse(cmd.RequestID, payload)
			}

			payload = append(payload, byte(s.virtual.At(row, col).State))
		}
	}

	return busipc.NewDataResponse(cmd.RequestID, payload)
}

func (s *Server) handleGetMonitorList(cmd busipc.WindowCommand) busipc.WindowResponse {
	payload := make([]byte, 0, busipc.MaxPayload)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(s.monitors)))

	for _, m := range s.monitors {
		if len(payload)+20 > busipc.MaxPayload {
			break
		}

		payload = binary.LittleEndian.AppendUint32(payload, uint32(m.ID))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(m.Bounds.Left))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(m.Bounds.Top))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(m.Width))
		payload = binary.LittleEndian.AppendUint32(payload, uint32(m.Height))
	}

	return busipc.NewDataResponse(cmd.RequestID, payload)
}

func (s *Server) handleAssignToVirtualCell(cmd busipc.WindowCommand) busipc.WindowResponse {
	if s.virtual == nil {
		return errorResponse(cmd.RequestID, "grid not yet built")
	}

	handle := tracker.Handle(cmd.Hwnd)

	info, ok := s.tr.Get(handle)
	if !ok {
		return errorResponse(cmd.RequestID, "window not tracked")
	}

	target := geometry.CellBounds(int(cmd.TargetRow), int(cmd.TargetCol), s.virtual.Rows, s.virtual.Cols, s.virtual.Bounds)

	s.engine.Start(handle, info.Rect, target, animationDuration(cmd.AnimationDurationMs), animation.Kind(cmd.EasingType), time.Now())

	return ackResponse(cmd.RequestID)
}

func (s *Server) handleAssignToMonitorCell(cmd busipc.WindowCommand) busipc.WindowResponse {
	mon, ok := s.monitorByID(int(cmd.MonitorID))
	if !ok {
		return errorResponse(cmd.RequestID, "unknown monitor id")
	}

	handle := tracker.Handle(cmd.Hwnd)

	info, ok := s.tr.Get(handle)
	if !ok {
		return errorResponse(cmd.RequestID, "window not tracked")
	}

	cell := geometry.Cell{Row: int(cmd.TargetRow), Col: int(cmd.TargetCol)}

	if s.virtual != nil {
		if _, ok := geometry.MonitorCellToVirtual(cell, s.cfg.Grid.Rows, s.cfg.Grid.Cols, mon.Bounds, s.virtual.Rows, s.virtual.Cols, s.virtual.Bounds); !ok {
			s.log.Warn("monitor cell maps outside the virtual grid", zap.Int("monitor_id", mon.ID))
		}
	}

	target := geometry.CellBounds(int(cmd.TargetRow), int(cmd.TargetCol), s.cfg.Grid.Rows, s.cfg.Grid.Cols, mon.Bounds)

	s.engine.Start(handle, info.Rect, target, animationDuration(cmd.AnimationDurationMs), animation.Kind(cmd.EasingType), time.Now())

	return ackResponse(cmd.RequestID)
}

func (s *Server) handleStartAnimation(cmd busipc.WindowCommand) busipc.WindowResponse {
	return s.handleAssignToVirtualCell(cmd)
}

func (s *Server) handleSaveLayout(cmd busipc.WindowCommand) busipc.WindowResponse {
	name := layoutName(cmd.LayoutID)

	var entries []animation.LayoutEntry

	for _, w := range s.tr.Snapshot() {
		if !w.Manageable {
			continue
		}

		entries = append(entries, animation.LayoutEntry{
			Identity:   animation.ComputeIdentity(w.Title, w.ProcessID),
			Title:      w.Title,
			TargetRect: w.Rect,
		})
	}

	s.engine.SaveLayout(name, entries)

	return ackResponse(cmd.RequestID)
}

func (s *Server) handleApplyLayout(cmd busipc.WindowCommand) busipc.WindowResponse {
	name := layoutName(cmd.LayoutID)

	saved, ok := s.engine.Layout(name)
	if !ok {
		return errorResponse(cmd.RequestID, "layout not found")
	}

	now := time.Now()
	duration := animationDuration(cmd.AnimationDurationMs)
	easing := animation.Kind(cmd.EasingType)

	var warnings []string

	for _, entry := range saved.Entries {
		handle, ok := s.findByIdentity(entry.Identity)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipped %q: no longer present", entry.Title))

			continue
		}

		info, ok := s.tr.Get(handle)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipped %q: no longer present", entry.Title))

			continue
		}

		s.engine.Start(handle, info.Rect, entry.TargetRect, duration, easing, now)
	}

	if len(warnings) == 0 {
		return ackResponse(cmd.RequestID)
	}

	payload := []byte(strings.Join(warnings, "; "))
	if len(payload) > busipc.MaxPayload {
		payload = payload[:busipc.MaxPayload]
	}

	return busipc.NewDataResponse(cmd.RequestID, payload)
}

func (s *Server) handleFocusWindow(cmd busipc.WindowCommand) busipc.WindowResponse {
	if err := s.ws.Focus(cmd.Hwnd); err != nil {
		return errorResponse(cmd.RequestID, fmt.Sprintf("focus failed: %v", err))
	}

	return ackResponse(cmd.RequestID)
}

func (s *Server) monitorByID(id int) (monitorView, bool) {
	for _, m := range s.monitors {
		if m.ID == id {
			return monitorView{ID: m.ID, Bounds: m.Bounds}, true
		}
	}

	return monitorView{}, false
}

type monitorView struct {
	ID     int
	Bounds geometry.Rect
}

func (s *Server) findByIdentity(identity animation.Identity) (tracker.Handle, bool) {
	var found tracker.Handle

	var ok bool

	s.tr.ForEach(func(w tracker.WindowInfo) bool {
		if animation.ComputeIdentity(w.Title, w.ProcessID) == identity {
			found = w.Handle
			ok = true

			return false
		}

		return true
	})

	return found, ok
}

func layoutName(layoutID uint32) string {
	return fmt.Sprintf("layout-%d", layoutID)
}

func animationDuration(ms uint32) time.Duration {
	if ms == 0 {
		return 300 * time.Millisecond
	}

	return time.Duration(ms) * time.Millisecond
}
