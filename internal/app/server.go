package app

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/e-grid/e-grid/internal/busipc"
	"github.com/e-grid/e-grid/internal/config"
	"github.com/e-grid/e-grid/internal/domain/animation"
	"github.com/e-grid/e-grid/internal/domain/grid"
	"github.com/e-grid/e-grid/internal/domain/tracker"
	derrors "github.com/e-grid/e-grid/internal/errors"
	"github.com/e-grid/e-grid/internal/platform"
	"github.com/e-grid/e-grid/internal/queue"
	"go.uber.org/zap"
)

// ShutdownHeartbeatFlag is published once, immediately before the dispatcher
// loop exits, so every connected client observes the transition from alive
// to shutting-down (spec.md scenario S4) rather than simply losing the feed.
const ShutdownHeartbeatFlag = busipc.HeartbeatShutdown

// Server is the composition root: the single dispatcher thread that owns
// the tracker, grid, animation engine, and IPC bus, following the teacher's
// App struct (a single owner for all subsystems reached through one
// Run/Stop/Cleanup lifecycle).
type Server struct {
	cfg *config.Config
	log *zap.Logger
	ws  platform.WindowSystem

	q      *queue.Queue
	tr     *tracker.Tracker
	engine *animation.Engine
	bus    *busipc.Bus

	monitors   []grid.Monitor
	virtual    *grid.Matrix
	perMonitor map[int]*grid.Matrix

	focused  tracker.Handle
	hasFocus bool

	heartbeatSeq  uint64
	lastRebuild   time.Time
	lastHeartbeat time.Time
	tickCount     uint64

	commandSub   *busipc.Subscription[busipc.WindowCommand]
	animationSub *busipc.Subscription[busipc.AnimationCommand]

	stopChan chan struct{}
	stopOnce sync.Once
	wsDone   chan struct{}
}

// NewServer wires the dispatcher's owned subsystems from cfg, following the
// teacher's constructor style of eagerly building every collaborator up
// front rather than lazily on first use.
func NewServer(cfg *config.Config, log *zap.Logger, ws platform.WindowSystem) (*Server, error) {
	bus := busipc.NewBus(busipc.BufferSizes{
		Large:  cfg.IPC.LargeBufferCapacity,
		Medium: cfg.IPC.MediumBufferCapacity,
		Small:  cfg.IPC.SmallBufferCapacity,
	}, log)

	commandSub, _, err := bus.Commands.Subscribe(cfg.IPC.MediumBufferCapacity)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeIPCFailed, "server could not subscribe to its own command service")
	}

	animationSub, _, err := bus.Animation.Subscribe(cfg.IPC.MediumBufferCapacity)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeIPCFailed, "server could not subscribe to its own animation service")
	}

	return &Server{
		cfg:          cfg,
		log:          log,
		ws:           ws,
		q:            queue.New(cfg.Timing.QueueCapacity),
		tr:           tracker.New(tracker.NewDefaultFilter(cfg.Grid.DenyListClassNames)),
		engine:       animation.NewEngine(),
		bus:          bus,
		commandSub:   commandSub,
		animationSub: animationSub,
		stopChan:     make(chan struct{}),
		wsDone:       make(chan struct{}),
	}, nil
}

// Bus exposes the shared pub/sub fabric, for an in-process client that does
// not want to re-dial it.
func (s *Server) Bus() *busipc.Bus {
	return s.bus
}

// Run performs the initial discovery scan, starts the platform event intake,
// and ticks the dispatcher until a shutdown signal or Stop arrives.
func (s *Server) Run() error {
	s.log.Info("starting e-grid tracker server")

	monitors, err := s.ws.Monitors()
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "initial monitor enumeration failed")
	}

	s.monitors = toGridMonitors(monitors)

	windows, err := s.ws.EnumerateWindows()
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "initial window enumeration failed")
	}

	for _, w := range windows {
		s.tr.AddOrUpdate(tracker.Handle(w.Handle), w.ProcessID, w.Rect, w.Title, 0, w.Attrs)
	}

	s.rebuildGrids()

	go func() {
		defer close(s.wsDone)

		if runErr := s.ws.Run(func(ev queue.RawEvent) {
			s.q.Push(ev)
		}); runErr != nil {
			s.log.Error("platform event intake exited", zap.Error(runErr))
		}
	}()

	now := time.Now()
	s.lastRebuild = now
	s.lastHeartbeat = now
	s.emitHeartbeat(now, busipc.HeartbeatAlive)

	ticker := time.NewTicker(s.cfg.Timing.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case t := <-ticker.C:
			s.tick(t)
		case <-s.stopChan:
			s.emitHeartbeat(time.Now(), ShutdownHeartbeatFlag)

			return s.Cleanup()
		}
	}
}

// WaitForShutdown blocks until an OS interrupt/termination signal arrives or
// Stop is called programmatically, then requests the dispatcher loop to
// exit, mirroring the teacher's waitForShutdown.
func (s *Server) WaitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		s.log.Info("received shutdown signal")
	case <-s.stopChan:
	}

	s.Stop()
}

// Stop requests the dispatcher loop to exit. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Cleanup releases the platform event intake and unsubscribes the server's
// own command listener. Called automatically at the end of Run.
func (s *Server) Cleanup() error {
	s.log.Info("cleaning up")

	s.ws.Stop()
	<-s.wsDone

	s.commandSub.Close()
	s.animationSub.Close()

	return nil
}

func toGridMonitors(monitors []platform.Monitor) []grid.Monitor {
	out := make([]grid.Monitor, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, grid.Monitor{
			ID:       m.ID,
			Bounds:   m.Bounds,
			WorkArea: m.WorkArea,
			Width:    m.Bounds.Width(),
			Height:   m.Bounds.Height(),
		})
	}

	return out
}
