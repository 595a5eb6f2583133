package client

import (
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
	derrors "github.com/e-grid/e-grid/internal/errors"
)

// WithGridDimensions records the virtual grid's declared rows/cols so
// AssignToVirtualCell can reject out-of-range coordinates client-side
// before ever publishing a command (spec.md's coordinate-validation
// requirement).
func WithGridDimensions(rows, cols int) Option {
	return func(c *Client) { c.gridRows, c.gridCols = rows, cols }
}

func (c *Client) deliverResponse(r busipc.WindowResponse) {
	c.mu.Lock()
	ch, ok := c.pending[r.RequestID]
	if ok {
		delete(c.pending, r.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	select {
	case ch <- r:
	default:
	}
}

// sendCommand publishes cmd and blocks for its correlated WindowResponse,
// timing out after the client's configured command timeout
// (CodeCommandTimeout per spec.md §7).
func (c *Client) sendCommand(cmd busipc.WindowCommand) (busipc.WindowResponse, error) {
	c.mu.Lock()
	c.nextRequest++
	cmd.RequestID = c.nextRequest
	ch := make(chan busipc.WindowResponse, 1)
	c.pending[cmd.RequestID] = ch
	c.mu.Unlock()

	cmd.ProtocolVersion = busipc.ProtocolVersion
	c.bus.Commands.Publish(cmd)

	select {
	case resp := <-ch:
		return resp, nil
	case <-time.After(c.commandTimeout):
		c.mu.Lock()
		delete(c.pending, cmd.RequestID)
		c.mu.Unlock()

		return busipc.WindowResponse{}, derrors.Newf(derrors.CodeCommandTimeout, "command %d timed out after %s", cmd.CommandType, c.commandTimeout)
	}
}

// AssignToVirtualCell moves handle to (row, col) of the shared virtual
// grid, rejecting out-of-range coordinates before publishing when grid
// dimensions were configured via WithGridDimensions.
func (c *Client) AssignToVirtualCell(handle uint64, row, col uint32, duration time.Duration, easing uint8) (busipc.WindowResponse, error) {
	if c.gridRows > 0 && c.gridCols > 0 {
		if int(row) >= c.gridRows || int(col) >= c.gridCols {
			return busipc.WindowResponse{}, derrors.Newf(derrors.CodeInvalidCoordinates,
				"cell (%d,%d) outside declared grid %dx%d", row, col, c.gridRows, c.gridCols)
		}
	}

	return c.sendCommand(busipc.WindowCommand{
		CommandType:         busipc.CommandAssignToVirtualCell,
		Hwnd:                handle,
		TargetRow:           row,
		TargetCol:           col,
		AnimationDurationMs: uint32(duration.Milliseconds()),
		EasingType:          easing,
	})
}

// AssignToMonitorCell moves handle to (row, col) of monitorID's own grid.
func (c *Client) AssignToMonitorCell(handle uint64, monitorID uint32, row, col uint32, duration time.Duration, easing uint8) (busipc.WindowResponse, error) {
	return c.sendCommand(busipc.WindowCommand{
		CommandType:         busipc.CommandAssignToMonitorCell,
		Hwnd:                handle,
		MonitorID:           monitorID,
		TargetRow:           row,
		TargetCol:           col,
		AnimationDurationMs: uint32(duration.Milliseconds()),
		EasingType:          easing,
	})
}

// StartAnimation publishes a fire-and-forget animation request on
// GRID_ANIMATION, moving handle directly to targetRect without the
// cell-math AssignToVirtualCell/AssignToMonitorCell perform. Unlike the
// other command wrappers this never round-trips a response: GRID_ANIMATION
// is one-way client->server per spec.md §4.6.
func (c *Client) StartAnimation(handle uint64, targetX, targetY int32, targetWidth, targetHeight uint32, duration time.Duration, easing uint8) {
	c.bus.Animation.Publish(busipc.AnimationCommand{
		ProtocolVersion: busipc.ProtocolVersion,
		Hwnd:            handle,
		TargetX:         targetX,
		TargetY:         targetY,
		TargetWidth:     targetWidth,
		TargetHeight:    targetHeight,
		DurationMs:      uint32(duration.Milliseconds()),
		EasingType:      easing,
	})
}

// FocusWindow requests the server bring handle to the foreground.
func (c *Client) FocusWindow(handle uint64) (busipc.WindowResponse, error) {
	return c.sendCommand(busipc.WindowCommand{CommandType: busipc.CommandFocusWindow, Hwnd: handle})
}

// GetWindowList requests the current tracked window set.
func (c *Client) GetWindowList() (busipc.WindowResponse, error) {
	return c.sendCommand(busipc.WindowCommand{CommandType: busipc.CommandGetWindowList})
}

// GetGridState requests the current virtual grid matrix.
func (c *Client) GetGridState() (busipc.WindowResponse, error) {
	return c.sendCommand(busipc.WindowCommand{CommandType: busipc.CommandGetGridState})
}

// GetMonitorList requests the current monitor set.
func (c *Client) GetMonitorList() (busipc.WindowResponse, error) {
	return c.sendCommand(busipc.WindowCommand{CommandType: busipc.CommandGetMonitorList})
}

// SaveLayout asks the server to snapshot the current window placement under
// layoutID.
func (c *Client) SaveLayout(layoutID uint32) (busipc.WindowResponse, error) {
	return c.sendCommand(busipc.WindowCommand{CommandType: busipc.CommandSaveLayout, LayoutID: layoutID})
}

// ApplyLayout asks the server to replay the layout saved under layoutID.
func (c *Client) ApplyLayout(layoutID uint32, duration time.Duration, easing uint8) (busipc.WindowResponse, error) {
	return c.sendCommand(busipc.WindowCommand{
		CommandType:         busipc.CommandApplyLayout,
		LayoutID:            layoutID,
		AnimationDurationMs: uint32(duration.Milliseconds()),
		EasingType:          easing,
	})
}
