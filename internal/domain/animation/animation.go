// Package animation interpolates window rectangles over time and stores
// named layouts for later replay. The engine itself never touches the OS;
// the dispatcher reads Advance's output and issues the actual repositions.
package animation

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/tracker"
)

// Animation is the active interpolation state for one window. A window is
// present in at most one Animation at a time; Start on an already-animating
// handle supersedes the prior one.
type Animation struct {
	Handle    tracker.Handle
	Start     geometry.Rect
	Target    geometry.Rect
	StartTime time.Time
	Duration  time.Duration
	Easing    Kind
}

// Update is one tick's worth of interpolated output for a single animation.
type Update struct {
	Handle tracker.Handle
	Rect   geometry.Rect
	Done   bool
}

// Engine owns the concurrent map of active animations and the saved-layout
// store. Both are safe for concurrent access; only the dispatcher calls
// Advance, but Start/Cancel may be called from a command-handling goroutine
// concurrently with a tick in progress.
type Engine struct {
	animations sync.Map // tracker.Handle -> *Animation
	layouts    sync.Map // string -> *SavedLayout
}

// NewEngine creates an empty animation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Start begins a new animation for handle, capturing startRect as the
// interpolation origin. Any animation already active for handle is
// superseded (invariant 3).
func (e *Engine) Start(handle tracker.Handle, startRect, targetRect geometry.Rect, duration time.Duration, easing Kind, now time.Time) {
	e.animations.Store(handle, &Animation{
		Handle:    handle,
		Start:     startRect,
		Target:    targetRect,
		StartTime: now,
		Duration:  duration,
		Easing:    easing,
	})
}

// Cancel removes any active animation for handle, returning whether one existed.
func (e *Engine) Cancel(handle tracker.Handle) bool {
	_, existed := e.animations.LoadAndDelete(handle)

	return existed
}

// Active reports whether handle currently has an active animation.
func (e *Engine) Active(handle tracker.Handle) bool {
	_, ok := e.animations.Load(handle)

	return ok
}

// Advance computes the interpolated rectangle for every active animation at
// `now`, retiring (removing) any animation whose elapsed time has reached
// its duration after asserting the exact target rectangle one final time.
func (e *Engine) Advance(now time.Time) []Update {
	var updates []Update

	e.animations.Range(func(key, val any) bool {
		handle := key.(tracker.Handle)
		anim := val.(*Animation)

		elapsed := now.Sub(anim.StartTime)

		var t float64
		done := elapsed >= anim.Duration

		if done {
			t = 1
		} else if anim.Duration > 0 {
			t = float64(elapsed) / float64(anim.Duration)
		}

		progress := Ease(anim.Easing, t)
		rect := lerpRect(anim.Start, anim.Target, progress)

		updates = append(updates, Update{Handle: handle, Rect: rect, Done: done})

		if done {
			e.animations.Delete(handle)
		}

		return true
	})

	return updates
}

// Fail terminates the animation for handle without asserting its target,
// per the AnimationFailure error kind (an OS reposition failure mid-animation
// ends that animation; it does not retry).
func (e *Engine) Fail(handle tracker.Handle) {
	e.animations.Delete(handle)
}

func lerpRect(start, target geometry.Rect, t float64) geometry.Rect {
	return geometry.Rect{
		Left:   lerpInt(start.Left, target.Left, t),
		Top:    lerpInt(start.Top, target.Top, t),
		Right:  lerpInt(start.Right, target.Right, t),
		Bottom: lerpInt(start.Bottom, target.Bottom, t),
	}
}

func lerpInt(a, b int, t float64) int {
	if t <= 0 {
		return a
	}

	if t >= 1 {
		return b
	}

	diff := float64(b-a) * t
	if diff < 0 {
		return a + int(diff-0.5)
	}

	return a + int(diff+0.5)
}

// Identity is a stable cross-restart handle substitute for saved-layout
// replay: title+process hashed with xxhash, since raw OS handles are not
// stable across window lifecycle churn.
type Identity uint64

// ComputeIdentity derives the replay identity for a window from its title
// and owning process ID.
func ComputeIdentity(title string, processID uint32) Identity {
	return Identity(xxhash.Sum64String(fmt.Sprintf("%s#%d", title, processID)))
}

// LayoutEntry is one window's saved target rectangle within a layout.
type LayoutEntry struct {
	Identity   Identity
	Title      string
	TargetRect geometry.Rect
}

// SavedLayout is a named, persistent set of window placements.
type SavedLayout struct {
	Name    string
	Entries []LayoutEntry
}

// SaveLayout stores a snapshot of the given entries under name, overwriting
// any prior layout with the same name.
func (e *Engine) SaveLayout(name string, entries []LayoutEntry) {
	cp := append([]LayoutEntry(nil), entries...)
	e.layouts.Store(name, &SavedLayout{Name: name, Entries: cp})
}

// Layout returns a copy of the saved layout named name, or ok=false if none exists.
func (e *Engine) Layout(name string) (SavedLayout, bool) {
	val, ok := e.layouts.Load(name)
	if !ok {
		return SavedLayout{}, false
	}

	saved := val.(*SavedLayout)

	return SavedLayout{Name: saved.Name, Entries: append([]LayoutEntry(nil), saved.Entries...)}, true
}

// DeleteLayout removes the named layout, returning whether it existed.
func (e *Engine) DeleteLayout(name string) bool {
	_, existed := e.layouts.LoadAndDelete(name)

	return existed
}
