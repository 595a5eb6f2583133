// Package app wires intake, the tracker/grid/animation domain, and the IPC
// fabric together into the single dispatcher thread described in spec.md
// §5, following the teacher's internal/app composition-root style
// (constructor options, a Run/Stop/Cleanup lifecycle, a signal-driven
// graceful shutdown).
package app

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/e-grid/e-grid/internal/busipc"
	"github.com/e-grid/e-grid/internal/domain/animation"
	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/grid"
	"github.com/e-grid/e-grid/internal/domain/tracker"
	"github.com/e-grid/e-grid/internal/queue"
	"go.uber.org/zap"
)

// tick runs one dispatcher iteration: drain the intake queue into the
// tracker, rebuild grids on the configured cadence, advance animations, and
// service pending commands. It never blocks on I/O beyond the bounded OS
// calls platform.WindowSystem makes.
func (s *Server) tick(now time.Time) {
	s.tickCount++

	batch := s.q.Drain(s.cfg.Timing.BatchSize)

	mutated := false

	for _, ev := range batch {
		if s.applyRawEvent(ev, now) {
			mutated = true
		}
	}

	if mutated || now.Sub(s.lastRebuild) >= s.cfg.Timing.RebuildInterval {
		s.rebuildGrids()
		s.lastRebuild = now
	} else if s.cfg.Timing.GridDumpEveryTicks > 0 && s.tickCount%uint64(s.cfg.Timing.GridDumpEveryTicks) == 0 {
		// Periodic full resync (spec.md §4.4 step 4): republish every
		// tracked window's details even when nothing changed, so a
		// subscriber that missed messages due to buffer overflow recovers
		// state without waiting for the next mutation.
		s.publishWindowDetails(s.tr.Snapshot())
	}

	s.advanceAnimations(now)
	s.drainAnimationCommands()
	s.drainCommands()

	if now.Sub(s.lastHeartbeat) >= s.cfg.Timing.HeartbeatPeriod {
		s.emitHeartbeat(now, busipc.HeartbeatAlive)
		s.lastHeartbeat = now
	}
}

// applyRawEvent folds one coalesced intake event into the tracker and
// publishes the corresponding WindowEvent/WindowFocusEvent. It reports
// whether the tracker's window set or any window's rectangle, title or flags
// actually changed, so the caller can decide whether this tick's mutation warrants
// an immediate grid rebuild (spec.md §4.4 step 3: "if any mutation occurred
// since last rebuild").
func (s *Server) applyRawEvent(ev queue.RawEvent, now time.Time) bool {
	switch ev.Kind {
	case queue.Destroy:
		existed := s.tr.Remove(tracker.Handle(ev.Handle))
		s.publishEvent(busipc.EventDestroyed, tracker.Handle(ev.Handle), geometry.Rect{}, now)

		return existed
	case queue.Foreground:
		s.handleFocusChange(tracker.Handle(ev.Handle), now)

		return false
	}

	snap, ok := s.ws.Snapshot(ev.Handle)
	if !ok {
		// The window vanished between the event firing and our query; treat
		// it as a destroy so the tracker never holds a stale record.
		existed := s.tr.Remove(tracker.Handle(ev.Handle))
		if existed {
			s.publishEvent(busipc.EventDestroyed, tracker.Handle(ev.Handle), geometry.Rect{}, now)
		}

		return existed
	}

	// TODO: minimized/maximized chrome state needs GetWindowPlacement, not
	// yet wired; only foreground is derived here.
	var flags tracker.Flags
	if s.hasFocus && s.focused == tracker.Handle(ev.Handle) {
		flags |= tracker.FlagForeground
	}

	_, wasTracked := s.tr.Get(tracker.Handle(ev.Handle))
	change := s.tr.AddOrUpdate(tracker.Handle(ev.Handle), snap.ProcessID, snap.Rect, snap.Title, flags, snap.Attrs)

	switch change.Kind {
	case tracker.ChangeCreated:
		s.publishEvent(busipc.EventCreated, tracker.Handle(ev.Handle), change.New, now)

		return true
	case tracker.ChangeMoved:
		eventType := busipc.EventMoved

		switch ev.Kind {
		case queue.MoveStart:
			eventType = busipc.EventMoveStart
		case queue.MoveStop:
			eventType = busipc.EventMoveStop
		case queue.ResizeStart:
			eventType = busipc.EventResizeStart
		case queue.ResizeStop:
			eventType = busipc.EventResizeStop
		}

		s.publishEvent(eventType, tracker.Handle(ev.Handle), change.New, now)

		return true
	case tracker.ChangeRejected:
		s.log.Debug("window rejected by manageability filter",
			zap.Uint64("handle", ev.Handle), zap.String("reason", change.RejectReason))

		// AddOrUpdate drops a previously tracked window that now fails the
		// filter, which changes the window set.
		return wasTracked
	}

	return false
}

// rebuildGrids recomputes the virtual and per-monitor matrices from the
// current tracker snapshot and writes the derived cells back onto each
// window's record.
func (s *Server) rebuildGrids() {
	windows := s.tr.Snapshot()

	result := grid.Rebuild(windows, s.monitors, s.cfg.Grid.Rows, s.virtualCols(), s.cfg.Grid.Rows, s.cfg.Grid.Cols, s.cfg.Grid.CoverageThreshold)

	s.virtual = result.Virtual
	s.perMonitor = result.PerMonitor

	for handle, cells := range result.VirtualCells {
		s.tr.SetCells(handle, cells, result.MonitorCells[handle])
	}

	s.publishWindowDetails(windows)
}

func (s *Server) virtualCols() int {
	return grid.VirtualColsForMonitorCount(s.cfg.Grid.Cols, len(s.monitors))
}

// advanceAnimations drives every active animation forward and issues the
// corresponding reposition. A failed reposition ends that animation without
// asserting its target (the AnimationFailed error kind never retries).
func (s *Server) advanceAnimations(now time.Time) {
	for _, upd := range s.engine.Advance(now) {
		if err := s.ws.Reposition(uint64(upd.Handle), upd.Rect); err != nil {
			s.log.Warn("reposition failed mid-animation", zap.Uint64("handle", uint64(upd.Handle)), zap.Error(err))
			s.engine.Fail(upd.Handle)

			continue
		}

		s.publishEvent(busipc.EventMoved, upd.Handle, upd.Rect, now)
	}
}

// drainAnimationCommands services GRID_ANIMATION, the fire-and-forget
// client->server channel (spec.md §4.6) that starts an animation directly
// from a target rectangle, bypassing the cell-math that backs the
// GRID_COMMANDS StartAnimation request/response pair. No response is ever
// published here: the channel is one-way by design.
func (s *Server) drainAnimationCommands() {
	for {
		select {
		case cmd := <-s.animationSub.Ch:
			handle := tracker.Handle(cmd.Hwnd)

			info, ok := s.tr.Get(handle)
			if !ok {
				s.log.Debug("animation command for untracked window", zap.Uint64("handle", cmd.Hwnd))

				continue
			}

			target := geometry.Rect{
				Left: int(cmd.TargetX), Top: int(cmd.TargetY),
				Right: int(cmd.TargetX) + int(cmd.TargetWidth), Bottom: int(cmd.TargetY) + int(cmd.TargetHeight),
			}

			s.engine.Start(handle, info.Rect, target, animationDuration(cmd.DurationMs), animation.Kind(cmd.EasingType), time.Now())
		default:
			return
		}
	}
}

func (s *Server) publishEvent(eventType busipc.EventType, handle tracker.Handle, rect geometry.Rect, now time.Time) {
	row, col := 0, 0
	topRow, topCol, botRow, botCol := 0, 0, 0, 0
	monitorID := 0

	if info, ok := s.tr.Get(handle); ok {
		if len(info.VirtualCells) > 0 {
			row, col = info.VirtualCells[0].Row, info.VirtualCells[0].Col
			topRow, topCol = row, col
			botRow, botCol = row, col

			for _, c := range info.VirtualCells {
				if c.Row < topRow {
					topRow = c.Row
				}
				if c.Col < topCol {
					topCol = c.Col
				}
				if c.Row > botRow {
					botRow = c.Row
				}
				if c.Col > botCol {
					botCol = c.Col
				}
			}
		}

		for id := range info.MonitorCells {
			monitorID = id

			break
		}
	}

	s.bus.Events.Publish(busipc.WindowEvent{
		ProtocolVersion:    busipc.ProtocolVersion,
		EventType:          eventType,
		Hwnd:               uint64(handle),
		Row:                uint32(row),
		Col:                uint32(col),
		GridTopLeftRow:     uint32(topRow),
		GridTopLeftCol:     uint32(topCol),
		GridBottomRightRow: uint32(botRow),
		GridBottomRightCol: uint32(botCol),
		RealX:              int32(rect.Left),
		RealY:              int32(rect.Top),
		RealWidth:          uint32(rect.Width()),
		RealHeight:         uint32(rect.Height()),
		MonitorID:          uint32(monitorID),
		Timestamp:          uint64(now.UnixMilli()),
	})
}

func (s *Server) publishWindowDetails(windows []tracker.WindowInfo) {
	for _, w := range windows {
		var flags uint32
		if w.Flags&tracker.FlagMinimized != 0 {
			flags |= busipc.FlagMinimized
		}
		if w.Flags&tracker.FlagMaximized != 0 {
			flags |= busipc.FlagMaximized
		}
		if w.Flags&tracker.FlagForeground != 0 {
			flags |= busipc.FlagForeground
		}
		if w.Flags&tracker.FlagTopmost != 0 {
			flags |= busipc.FlagTopmost
		}

		var vTop, vLeft, vBottom, vRight int
		if len(w.VirtualCells) > 0 {
			vTop, vLeft = w.VirtualCells[0].Row, w.VirtualCells[0].Col
			vBottom, vRight = vTop, vLeft

			for _, c := range w.VirtualCells {
				if c.Row < vTop {
					vTop = c.Row
				}
				if c.Col < vLeft {
					vLeft = c.Col
				}
				if c.Row > vBottom {
					vBottom = c.Row
				}
				if c.Col > vRight {
					vRight = c.Col
				}
			}
		}

		monitorID := 0
		for id := range w.MonitorCells {
			monitorID = id

			break
		}

		s.bus.WindowDetails.Publish(busipc.WindowDetails{
			ProtocolVersion:       busipc.ProtocolVersion,
			Hwnd:                  uint64(w.Handle),
			X:                     int32(w.Rect.Left),
			Y:                     int32(w.Rect.Top),
			Width:                 uint32(w.Rect.Width()),
			Height:                uint32(w.Rect.Height()),
			VirtualRowTopLeft:     uint32(vTop),
			VirtualColTopLeft:     uint32(vLeft),
			VirtualRowBottomRight: uint32(vBottom),
			VirtualColBottomRight: uint32(vRight),
			MonitorID:             uint32(monitorID),
			TitleHash:             xxhash.Sum64String(w.Title),
			Flags:                 flags,
		})
	}
}

func (s *Server) emitHeartbeat(now time.Time, flag busipc.HeartbeatFlag) {
	s.heartbeatSeq++
	s.bus.Heartbeat.Publish(busipc.Heartbeat{
		ProtocolVersion: busipc.ProtocolVersion,
		Sequence:        s.heartbeatSeq,
		Timestamp:       uint64(now.UnixMilli()),
		Flag:            flag,
	})
}
