// Package platform wraps the OS-specific window management primitives
// behind a narrow interface, the way the teacher's accessibility adapter
// wraps its AXClient: callers depend on WindowSystem, never on the
// concrete Win32 client, so the dispatcher and its tests never need a
// real desktop session.
package platform

import (
	"time"

	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/tracker"
	"github.com/e-grid/e-grid/internal/queue"
)

// Snapshot is one window as reported by a discovery scan.
type Snapshot struct {
	Handle    uint64
	ProcessID uint32
	Rect      geometry.Rect
	Title     string
	Attrs     tracker.OSAttributes
}

// Monitor describes one physical display, in the same shape the grid
// package consumes.
type Monitor struct {
	ID       int
	Bounds   geometry.Rect
	WorkArea geometry.Rect
}

// WindowSystem is the platform port the dispatcher depends on. A Windows
// build satisfies it with real Win32 calls; tests use the in-memory Fake,
// and on other builds New returns an error.
type WindowSystem interface {
	// EnumerateWindows performs a full discovery scan, used at startup and
	// after a monitor reconfiguration restarts the tracker.
	EnumerateWindows() ([]Snapshot, error)

	// Snapshot queries a single window by handle, used by the dispatcher to
	// resolve a Create/LocationChange raw event without a full rescan.
	Snapshot(handle uint64) (Snapshot, bool)

	// Monitors enumerates the current physical displays.
	Monitors() ([]Monitor, error)

	// Reposition moves and resizes handle to rect. Returns an error (never
	// panics or blocks indefinitely) if the OS call fails, e.g. because the
	// window vanished mid-animation.
	Reposition(handle uint64, rect geometry.Rect) error

	// Focus brings handle to the foreground, for the FocusWindow command.
	Focus(handle uint64) error

	// Run starts the platform's event intake: a message pump and any
	// registered hooks, pushing RawEvents into sink until ctx-equivalent
	// Stop is called. Run must return promptly after Stop; it owns the only
	// OS-thread-affine goroutine in the process.
	Run(sink func(queue.RawEvent)) error

	// Stop requests Run to return. Safe to call once Run has returned.
	Stop()
}

// StartupPollInterval is how often EnumerateWindows-dependent callers may
// poll for monitor/window system readiness.
const StartupPollInterval = 100 * time.Millisecond
