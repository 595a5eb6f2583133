package platform

import (
	"sync"

	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/queue"
)

// Fake is an in-memory WindowSystem used by tests; non-Windows builds do not
// fall back to it (New returns an error there). Test code drives it directly via Emit/SetWindows/
// SetMonitors instead of a real desktop session.
type Fake struct {
	mu            sync.Mutex
	windows       map[uint64]Snapshot
	monitors      []Monitor
	sink          func(queue.RawEvent)
	stopped       chan struct{}
	repositions   []Reposition
	focusRequests []uint64
}

// Reposition records one Reposition call, for assertions in tests.
type Reposition struct {
	Handle uint64
	Rect   geometry.Rect
}

// NewFake creates an empty Fake window system.
func NewFake() *Fake {
	return &Fake{windows: make(map[uint64]Snapshot), stopped: make(chan struct{})}
}

// SetWindows replaces the full enumerable window set.
func (f *Fake) SetWindows(snaps []Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.windows = make(map[uint64]Snapshot, len(snaps))
	for _, s := range snaps {
		f.windows[s.Handle] = s
	}
}

// SetMonitors replaces the enumerable monitor set.
func (f *Fake) SetMonitors(monitors []Monitor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.monitors = append([]Monitor(nil), monitors...)
}

// Emit pushes a raw event to the running sink, as a real OS callback would.
// It is a no-op before Run has been called.
func (f *Fake) Emit(ev queue.RawEvent) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()

	if sink != nil {
		sink(ev)
	}
}

// EnumerateWindows returns the currently configured window set.
func (f *Fake) EnumerateWindows() ([]Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Snapshot, 0, len(f.windows))
	for _, s := range f.windows {
		out = append(out, s)
	}

	return out, nil
}

// Snapshot returns the configured window matching handle, if any.
func (f *Fake) Snapshot(handle uint64) (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.windows[handle]

	return s, ok
}

// Monitors returns the currently configured monitor set.
func (f *Fake) Monitors() ([]Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Monitor(nil), f.monitors...), nil
}

// Reposition records the call and updates the fake window's rect.
func (f *Fake) Reposition(handle uint64, rect geometry.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.repositions = append(f.repositions, Reposition{Handle: handle, Rect: rect})

	if w, ok := f.windows[handle]; ok {
		w.Rect = rect
		f.windows[handle] = w
	}

	return nil
}

// Focus records a focus request.
func (f *Fake) Focus(handle uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.focusRequests = append(f.focusRequests, handle)

	return nil
}

// FocusRequests returns every Focus call observed so far.
func (f *Fake) FocusRequests() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]uint64(nil), f.focusRequests...)
}

// Repositions returns every Reposition call observed so far.
func (f *Fake) Repositions() []Reposition {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Reposition(nil), f.repositions...)
}

// Run registers sink and blocks until Stop is called.
func (f *Fake) Run(sink func(queue.RawEvent)) error {
	f.mu.Lock()
	f.sink = sink
	stopped := f.stopped
	f.mu.Unlock()

	<-stopped

	return nil
}

// Stop unblocks Run.
func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.stopped:
	default:
		close(f.stopped)
	}
}

var _ WindowSystem = (*Fake)(nil)
