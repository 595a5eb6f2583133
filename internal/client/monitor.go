package client

import (
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
	"go.uber.org/zap"
)

// DefaultHeartbeatPeriod is the client's assumption about the server's
// heartbeat cadence, used only to size the staleness timer; a mismatch with
// the server's real period shifts when the connection is declared lost and
// the reconnection loop starts.
const DefaultHeartbeatPeriod = 1 * time.Second

// WithHeartbeatPeriod overrides DefaultHeartbeatPeriod to match the
// server's configured cadence.
func WithHeartbeatPeriod(d time.Duration) Option {
	return func(c *Client) { c.heartbeatPeriod = d }
}

// monitor is the client's lone background goroutine per connected session:
// it fans in from every subscribed channel and dispatches to the matching
// Option-typed callback. A timer reset on every alive heartbeat detects
// staleness: once HeartbeatStaleAfter consecutive periods elapse with no
// heartbeat, or a shutdown heartbeat arrives, the server is declared lost
// (spec.md scenarios S4/S5) and monitor returns true so run's reconnection
// loop takes over. It returns false only when Close requested a clean stop.
func (c *Client) monitor(
	events *busipc.Subscription[busipc.WindowEvent],
	details *busipc.Subscription[busipc.WindowDetails],
	focus *busipc.Subscription[busipc.WindowFocusEvent],
	layout *busipc.Subscription[busipc.LayoutMessage],
	anim *busipc.Subscription[busipc.AnimationCommand],
	responses *busipc.Subscription[busipc.WindowResponse],
	heartbeat *busipc.Subscription[busipc.Heartbeat],
) bool {
	period := c.heartbeatPeriod
	if period <= 0 {
		period = DefaultHeartbeatPeriod
	}

	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return false
		case ev, ok := <-events.Ch:
			if !ok {
				return true
			}

			if c.callbacks.OnWindowEvent != nil {
				c.callbacks.OnWindowEvent(ev)
			}
		case d, ok := <-details.Ch:
			if !ok {
				return true
			}

			if c.callbacks.OnWindowDetails != nil {
				c.callbacks.OnWindowDetails(d)
			}
		case f, ok := <-focus.Ch:
			if !ok {
				return true
			}

			if c.callbacks.OnFocusEvent != nil {
				c.callbacks.OnFocusEvent(f)
			}
		case l, ok := <-layout.Ch:
			if !ok {
				return true
			}

			if c.callbacks.OnLayout != nil {
				c.callbacks.OnLayout(l)
			}
		case a, ok := <-anim.Ch:
			if !ok {
				return true
			}

			if c.callbacks.OnAnimation != nil {
				c.callbacks.OnAnimation(a)
			}
		case r, ok := <-responses.Ch:
			if !ok {
				return true
			}

			c.deliverResponse(r)
		case h, ok := <-heartbeat.Ch:
			if !ok {
				return true
			}

			if h.Flag == busipc.HeartbeatShutdown {
				if c.log != nil {
					c.log.Warn("received shutdown heartbeat, declaring server lost")
				}

				return true
			}

			c.mu.Lock()
			c.heartbeatSeq = h.Sequence
			c.missed = 0
			c.mu.Unlock()

			if !timer.Stop() {
				<-timer.C
			}

			timer.Reset(period)

			if c.callbacks.OnHeartbeat != nil {
				c.callbacks.OnHeartbeat(h)
			}
		case <-timer.C:
			c.mu.Lock()
			c.missed++
			missed := c.missed
			c.mu.Unlock()

			if c.log != nil {
				c.log.Warn("heartbeat period elapsed with no heartbeat", zap.Int("missed", missed))
			}

			if missed >= HeartbeatStaleAfter {
				if c.log != nil {
					c.log.Warn("missed consecutive heartbeats, declaring server lost", zap.Int("missed", missed))
				}

				if c.callbacks.OnHeartbeatStale != nil {
					c.callbacks.OnHeartbeatStale(missed)
				}

				return true
			}

			timer.Reset(period)
		}
	}
}
