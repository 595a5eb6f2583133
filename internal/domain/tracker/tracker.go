// Package tracker holds the single in-memory source of truth for tracked
// windows: a concurrent map keyed by OS window handle, safe for a lone
// dispatcher-thread writer and many concurrent readers (snapshot producers,
// IPC publishers). Grid matrices are computed elsewhere (internal/domain/grid)
// from a Tracker snapshot; the tracker itself only ever holds window records.
package tracker

import (
	"sync"
	"sync/atomic"

	"github.com/e-grid/e-grid/internal/domain/geometry"
)

// Handle is the OS-level stable identifier for a top-level window (an HWND
// on Windows, carried as an opaque 64-bit value so the domain layer never
// depends on a platform type).
type Handle uint64

// Flags are bit flags describing window chrome state.
type Flags uint32

const (
	FlagMinimized Flags = 1 << iota
	FlagMaximized
	FlagForeground
	FlagTopmost
)

// WindowInfo is the stable record for one tracked window.
type WindowInfo struct {
	Handle       Handle
	ProcessID    uint32
	Rect         geometry.Rect
	OriginalRect geometry.Rect
	Title        string
	Flags        Flags
	VirtualCells []geometry.Cell
	MonitorCells map[int][]geometry.Cell // monitor ID -> cells
	Manageable   bool
}

// record is the mutable, internally-synchronized entry stored per handle.
// Field access outside this package always goes through snapshotting methods
// that copy out a WindowInfo value, so callers never observe a partially
// updated record.
type record struct {
	mu   sync.RWMutex
	info WindowInfo
}

func (r *record) snapshot() WindowInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := r.info
	info.VirtualCells = append([]geometry.Cell(nil), r.info.VirtualCells...)

	if r.info.MonitorCells != nil {
		info.MonitorCells = make(map[int][]geometry.Cell, len(r.info.MonitorCells))
		for k, v := range r.info.MonitorCells {
			info.MonitorCells[k] = append([]geometry.Cell(nil), v...)
		}
	}

	return info
}

// ChangeKind classifies the result of add_or_update.
type ChangeKind int

const (
	// ChangeCreated indicates a new window record was inserted.
	ChangeCreated ChangeKind = iota
	// ChangeMoved indicates an existing record's rectangle, title or flags
	// changed; Old equals New when only the title or flags differ.
	ChangeMoved
	// ChangeUnchanged indicates the update carried no observable difference.
	ChangeUnchanged
	// ChangeRejected indicates the window failed the manageability filter.
	ChangeRejected
)

// Change describes the outcome of add_or_update.
type Change struct {
	Kind         ChangeKind
	Old          geometry.Rect // valid when Kind == ChangeMoved
	New          geometry.Rect
	RejectReason string // valid when Kind == ChangeRejected
}

// Tracker is the concurrent window map. The zero value is not usable; use
// New.
type Tracker struct {
	windows sync.Map // Handle -> *record
	count   atomic.Int64
	filter  ManageabilityFilter
}

// New creates a Tracker that applies filter to every add_or_update call.
func New(filter ManageabilityFilter) *Tracker {
	return &Tracker{filter: filter}
}

// AddOrUpdate inserts a new record or updates an existing one, returning the
// kind of change observed. attrs is the raw OS attribute snapshot used only
// to evaluate manageability; it is not retained.
func (t *Tracker) AddOrUpdate(handle Handle, processID uint32, rect geometry.Rect, title string, flags Flags, attrs OSAttributes) Change {
	if ok, reason := t.filter(attrs); !ok {
		// A previously-manageable window that stops passing the filter (for
		// example, it becomes cloaked) is removed outright rather than kept
		// stale.
		t.Remove(handle)

		return Change{Kind: ChangeRejected, RejectReason: reason}
	}

	val, loaded := t.windows.Load(handle)
	if !loaded {
		rec := &record{info: WindowInfo{
			Handle:       handle,
			ProcessID:    processID,
			Rect:         rect,
			OriginalRect: rect,
			Title:        title,
			Flags:        flags,
			Manageable:   true,
		}}

		actual, loadedNow := t.windows.LoadOrStore(handle, rec)
		if !loadedNow {
			t.count.Add(1)

			return Change{Kind: ChangeCreated, New: rect}
		}

		val = actual
	}

	rec := val.(*record)

	rec.mu.Lock()
	old := rec.info.Rect
	changed := old != rect || rec.info.Title != title || rec.info.Flags != flags
	rec.info.Rect = rect
	rec.info.Title = title
	rec.info.Flags = flags
	rec.mu.Unlock()

	if !changed {
		return Change{Kind: ChangeUnchanged, New: rect}
	}

	return Change{Kind: ChangeMoved, Old: old, New: rect}
}

// Remove deletes the record for handle, returning whether it existed.
func (t *Tracker) Remove(handle Handle) bool {
	_, loaded := t.windows.LoadAndDelete(handle)
	if loaded {
		t.count.Add(-1)
	}

	return loaded
}

// Get returns a copy of the record for handle, or ok=false if untracked.
func (t *Tracker) Get(handle Handle) (WindowInfo, bool) {
	val, ok := t.windows.Load(handle)
	if !ok {
		return WindowInfo{}, false
	}

	return val.(*record).snapshot(), true
}

// SetCells updates the derived virtual/per-monitor cell sets for handle.
// Called only by the dispatcher after a grid rebuild.
func (t *Tracker) SetCells(handle Handle, virtual []geometry.Cell, monitor map[int][]geometry.Cell) {
	val, ok := t.windows.Load(handle)
	if !ok {
		return
	}

	rec := val.(*record)
	rec.mu.Lock()
	rec.info.VirtualCells = virtual
	rec.info.MonitorCells = monitor
	rec.mu.Unlock()
}

// ForEach iterates every tracked window without holding any lock across the
// callback, so a slow or reentrant callback can never block a concurrent
// writer.
func (t *Tracker) ForEach(f func(WindowInfo) bool) {
	t.windows.Range(func(_, val any) bool {
		return f(val.(*record).snapshot())
	})
}

// Snapshot returns a consistent copy of every tracked window, safe to hand
// to an IPC publisher or display layer.
func (t *Tracker) Snapshot() []WindowInfo {
	out := make([]WindowInfo, 0, t.count.Load())
	t.ForEach(func(w WindowInfo) bool {
		out = append(out, w)

		return true
	})

	return out
}

// Len returns the number of tracked windows.
func (t *Tracker) Len() int {
	return int(t.count.Load())
}

// OSAttributes is the minimal set of raw OS attributes the manageability
// filter evaluates. It is a pure value, never a live handle, so the filter
// itself stays a pure function of a snapshot (per the spec's "pure function
// of a snapshot of OS window attributes" requirement).
type OSAttributes struct {
	IsTopLevel    bool
	IsVisible     bool
	IsCloaked     bool
	IsToolWindow  bool
	IsOwnProcess  bool
	ClassName     string
	X, Y          int
	MinimizedX    int
	MinimizedY    int
}

// ManageabilityFilter decides whether a window should be tracked. It returns
// false and a reason string when the window should be excluded.
type ManageabilityFilter func(OSAttributes) (bool, string)

// NewDefaultFilter builds the manageability filter described in the design
// notes' open question: exclude non-top-level, invisible, cloaked tool
// windows, windows parked at the off-screen minimized-restore coordinates,
// windows owned by this process, and windows whose class name is on denyList.
func NewDefaultFilter(denyList []string) ManageabilityFilter {
	deny := make(map[string]struct{}, len(denyList))
	for _, name := range denyList {
		deny[name] = struct{}{}
	}

	const offscreenMinimizedCoord = -32000

	return func(a OSAttributes) (bool, string) {
		if !a.IsTopLevel {
			return false, "not top-level"
		}

		if !a.IsVisible {
			return false, "invisible"
		}

		if a.IsCloaked && a.IsToolWindow {
			return false, "cloaked tool window"
		}

		if a.X == offscreenMinimizedCoord && a.Y == offscreenMinimizedCoord {
			return false, "parked at off-screen minimized coordinates"
		}

		if a.IsOwnProcess {
			return false, "owned by tracker process"
		}

		if a.ClassName == "" {
			return false, "empty class name"
		}

		if _, denied := deny[a.ClassName]; denied {
			return false, "class name on deny-list: " + a.ClassName
		}

		return true, ""
	}
}
