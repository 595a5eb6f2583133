// Package client is the library side of the tracker's IPC fabric: it
// subscribes to every GRID_* service except GRID_COMMANDS (which it only
// publishes to), round-trips commands against
// GRID_COMMANDS/GRID_RESPONSES, and drives a background monitor goroutine
// that invokes caller-supplied callbacks as events arrive. It never touches
// the OS directly; everything flows through the shared busipc.Bus, the
// transport this repo ships (see internal/busipc's package doc).
package client

import (
	"sync"
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
	derrors "github.com/e-grid/e-grid/internal/errors"
	"go.uber.org/zap"
)

// ReconnectAttempts bounds the reconnection loop started by Connect when the
// bus is not yet discoverable.
const ReconnectAttempts = 10

// ReconnectBaseDelay is the linear-backoff unit: attempt N waits N*base.
const ReconnectBaseDelay = 2 * time.Second

// HeartbeatStaleAfter is how many consecutive missed heartbeat periods the
// monitor goroutine tolerates before declaring the server lost: it then
// invokes OnHeartbeatStale and hands over to the reconnection loop.
const HeartbeatStaleAfter = 3

// Callbacks is the Option-typed callback-slot struct the client dispatches
// into, mirroring the teacher's re-architecture note (spec.md §9): one
// fixed struct of optional function slots rather than a dynamic list of
// registered listener interfaces.
type Callbacks struct {
	OnWindowEvent   func(busipc.WindowEvent)
	OnWindowDetails func(busipc.WindowDetails)
	OnFocusEvent    func(busipc.WindowFocusEvent)
	OnLayout        func(busipc.LayoutMessage)
	OnAnimation     func(busipc.AnimationCommand)
	OnHeartbeat     func(busipc.Heartbeat)
	OnHeartbeatStale func(missed int)
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithCallbacks installs the callback slots the monitor goroutine invokes.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Client) { c.callbacks = cb }
}

// WithCommandTimeout overrides the default per-command round-trip timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Client) { c.commandTimeout = d }
}

// Client is one connected subscriber session against a shared busipc.Bus. A
// Client transparently reconnects across losses of its underlying session
// (spec.md scenarios S4/S5): Connect only establishes the first session,
// after which the run loop tears down and re-subscribes on its own.
type Client struct {
	bus *busipc.Bus
	log *zap.Logger

	callbacks       Callbacks
	commandTimeout  time.Duration
	heartbeatPeriod time.Duration
	reconnectDelay  time.Duration
	gridRows        int
	gridCols        int

	mu           sync.Mutex
	subs         []closer
	pending      map[uint64]chan busipc.WindowResponse
	nextRequest  uint64
	heartbeatSeq uint64
	missed       int
	reconnects   int

	stop      chan struct{}
	done      chan struct{}
	connected bool
}

type closer interface{ Close() }

// subscription is the bundle of live channels one connected session fans in
// from; run passes it to monitor and tears it down on loss.
type subscription struct {
	events    *busipc.Subscription[busipc.WindowEvent]
	details   *busipc.Subscription[busipc.WindowDetails]
	focus     *busipc.Subscription[busipc.WindowFocusEvent]
	layout    *busipc.Subscription[busipc.LayoutMessage]
	anim      *busipc.Subscription[busipc.AnimationCommand]
	responses *busipc.Subscription[busipc.WindowResponse]
	heartbeat *busipc.Subscription[busipc.Heartbeat]
}

func (s subscription) closers() []closer {
	return []closer{s.events, s.details, s.focus, s.layout, s.anim, s.responses, s.heartbeat}
}

func (s subscription) closeAll() {
	for _, c := range s.closers() {
		c.Close()
	}
}

// New constructs a Client bound to bus. Call Connect to subscribe and start
// the monitor goroutine.
func New(bus *busipc.Bus, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		bus:            bus,
		log:            log,
		commandTimeout: 5 * time.Second,
		pending:        make(map[uint64]chan busipc.WindowResponse),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect waits for every fixed service to be discoverable on the bus
// (bounded startup delay, retrying up to ReconnectAttempts times with
// linear backoff), subscribes to every one it reads from (all but
// GRID_COMMANDS), and starts the background
// monitor goroutine.
func (c *Client) Connect() error {
	var lastErr error

	for attempt := 1; attempt <= ReconnectAttempts; attempt++ {
		if c.bus != nil && c.bus.Discoverable() {
			return c.subscribeAll()
		}

		lastErr = derrors.New(derrors.CodeIPCFailed, "bus services not yet discoverable")

		select {
		case <-time.After(c.backoff(attempt)):
		case <-c.stop:
			return derrors.New(derrors.CodeIPCFailed, "connect aborted by Close")
		}
	}

	return derrors.Wrap(lastErr, derrors.CodeIPCFailed, "exhausted reconnection attempts")
}

// backoff returns the linear-backoff delay for the given attempt number
// (attempt N waits N times the base unit), used by both the initial Connect
// wait and every later reconnection attempt.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.reconnectDelay
	if delay <= 0 {
		delay = ReconnectBaseDelay
	}

	return time.Duration(attempt) * delay
}

func (c *Client) subscribeAll() error {
	subs, err := c.openSubscription()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subs = subs.closers()
	c.mu.Unlock()

	c.connected = true

	go c.run(subs)

	return nil
}

// openSubscription subscribes to the seven fixed services the client reads
// (all but GRID_COMMANDS, which it only publishes to), used both by the
// initial Connect and by every reconnection attempt afterward.
func (c *Client) openSubscription() (subscription, error) {
	events, _, err := c.bus.Events.Subscribe(0)
	if err != nil {
		return subscription{}, derrors.Wrap(err, derrors.CodeIPCFailed, "subscribe to GRID_EVENTS failed")
	}

	details, _, err := c.bus.WindowDetails.Subscribe(0)
	if err != nil {
		events.Close()

		return subscription{}, derrors.Wrap(err, derrors.CodeIPCFailed, "subscribe to GRID_WINDOW_DETAILS failed")
	}

	focus, _, err := c.bus.FocusEvents.Subscribe(0)
	if err != nil {
		events.Close()
		details.Close()

		return subscription{}, derrors.Wrap(err, derrors.CodeIPCFailed, "subscribe to GRID_FOCUS_EVENTS failed")
	}

	layout, _, err := c.bus.Layout.Subscribe(0)
	if err != nil {
		events.Close()
		details.Close()
		focus.Close()

		return subscription{}, derrors.Wrap(err, derrors.CodeIPCFailed, "subscribe to GRID_LAYOUT failed")
	}

	anim, _, err := c.bus.Animation.Subscribe(0)
	if err != nil {
		events.Close()
		details.Close()
		focus.Close()
		layout.Close()

		return subscription{}, derrors.Wrap(err, derrors.CodeIPCFailed, "subscribe to GRID_ANIMATION failed")
	}

	responses, _, err := c.bus.Responses.Subscribe(0)
	if err != nil {
		events.Close()
		details.Close()
		focus.Close()
		layout.Close()
		anim.Close()

		return subscription{}, derrors.Wrap(err, derrors.CodeIPCFailed, "subscribe to GRID_RESPONSES failed")
	}

	heartbeat, _, err := c.bus.Heartbeat.Subscribe(0)
	if err != nil {
		events.Close()
		details.Close()
		focus.Close()
		layout.Close()
		anim.Close()
		responses.Close()

		return subscription{}, derrors.Wrap(err, derrors.CodeIPCFailed, "subscribe to GRID_HEARTBEAT failed")
	}

	return subscription{
		events: events, details: details, focus: focus, layout: layout,
		anim: anim, responses: responses, heartbeat: heartbeat,
	}, nil
}

// run drives one or more connected sessions over the Client's lifetime. When
// monitor reports the session lost, run tears down its subscribers and
// enters the reconnection loop before resuming; it only returns once Close
// has requested a stop or reconnection has been exhausted.
func (c *Client) run(subs subscription) {
	defer close(c.done)

	for {
		lost := c.monitor(subs.events, subs.details, subs.focus, subs.layout, subs.anim, subs.responses, subs.heartbeat)
		if !lost {
			return
		}

		subs.closeAll()

		if c.log != nil {
			c.log.Warn("server connection lost, entering reconnection loop")
		}

		next, ok := c.reconnect()
		if !ok {
			return
		}

		subs = next

		c.mu.Lock()
		c.subs = subs.closers()
		c.mu.Unlock()

		// Re-issue an implicit resync (spec.md scenario S5): published
		// fire-and-forget, since the monitor loop that would deliver their
		// correlated responses is only starting back up this iteration.
		c.bus.Commands.Publish(busipc.WindowCommand{ProtocolVersion: busipc.ProtocolVersion, CommandType: busipc.CommandGetWindowList})
		c.bus.Commands.Publish(busipc.WindowCommand{ProtocolVersion: busipc.ProtocolVersion, CommandType: busipc.CommandGetGridState})
	}
}

// reconnect retries Connect's discoverability wait every ReconnectBaseDelay
// scaled by attempt number (linear backoff), up to ReconnectAttempts times.
// It reports false if Close requested a stop or every attempt failed.
func (c *Client) reconnect() (subscription, bool) {
	for attempt := 1; attempt <= ReconnectAttempts; attempt++ {
		select {
		case <-c.stop:
			return subscription{}, false
		case <-time.After(c.backoff(attempt)):
		}

		if c.bus == nil || !c.bus.Discoverable() {
			continue
		}

		subs, err := c.openSubscription()
		if err != nil {
			if c.log != nil {
				c.log.Warn("reconnection attempt failed to subscribe", zap.Int("attempt", attempt), zap.Error(err))
			}

			continue
		}

		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()

		if c.log != nil {
			c.log.Info("reconnected", zap.Int("attempt", attempt))
		}

		return subs, true
	}

	if c.log != nil {
		c.log.Error("exhausted reconnection attempts, giving up")
	}

	return subscription{}, false
}

// Reconnects reports how many times this Client has successfully
// reestablished its session after a connection loss.
func (c *Client) Reconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reconnects
}

// Close unsubscribes from every service and stops the run loop, aborting any
// in-progress reconnection attempt.
func (c *Client) Close() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}

	if c.connected {
		<-c.done
	}

	c.mu.Lock()
	subs := c.subs
	c.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
