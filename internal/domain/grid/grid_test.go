package grid

import (
	"testing"

	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/tracker"
)

func oneMonitor() []Monitor {
	return []Monitor{{ID: 0, Bounds: geometry.Rect{Left: 0, Top: 0, Right: 1200, Bottom: 800}, Width: 1200, Height: 800}}
}

func TestRebuildSingleWindowSingleCell(t *testing.T) {
	windows := []tracker.WindowInfo{
		{Handle: 1, Rect: geometry.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}, Manageable: true},
	}

	result := Rebuild(windows, oneMonitor(), 8, 12, 8, 12, 0.30)

	if result.Virtual.At(0, 0).State != Occupied || result.Virtual.At(0, 0).Handle != 1 {
		t.Fatalf("expected virtual cell (0,0) occupied by handle 1, got %+v", result.Virtual.At(0, 0))
	}

	if result.Virtual.At(1, 1).State != Empty {
		t.Fatalf("expected cell (1,1) empty, got %+v", result.Virtual.At(1, 1))
	}

	mon0 := result.PerMonitor[0]
	if mon0.At(0, 0).State != Occupied {
		t.Fatal("expected monitor 0 cell (0,0) occupied")
	}
}

func TestRebuildMinimizedOffscreenWindowProducesNoCells(t *testing.T) {
	windows := []tracker.WindowInfo{
		{Handle: 1, Rect: geometry.Rect{Left: -32000, Top: -32000, Right: -31900, Bottom: -31900}, Manageable: true},
	}

	result := Rebuild(windows, oneMonitor(), 8, 12, 8, 12, 0.30)
	if len(result.VirtualCells[1]) != 0 {
		t.Fatalf("expected no occupied cells, got %+v", result.VirtualCells[1])
	}
}

func TestAreaInvariantSumOfCellAreasEqualsMonitorArea(t *testing.T) {
	result := Rebuild(nil, oneMonitor(), 8, 12, 8, 12, 0.30)
	mon := result.PerMonitor[0]

	var total int64
	for row := 0; row < mon.Rows; row++ {
		for col := 0; col < mon.Cols; col++ {
			total += mon.CellBounds(row, col).Area()
		}
	}

	if total != (geometry.Rect{Left: 0, Top: 0, Right: 1200, Bottom: 800}).Area() {
		t.Fatalf("got total cell area %d, want monitor area", total)
	}
}

func TestRebuildIsIdempotentAcrossCalls(t *testing.T) {
	windows := []tracker.WindowInfo{
		{Handle: 1, Rect: geometry.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}, Manageable: true},
	}

	first := Rebuild(windows, oneMonitor(), 8, 12, 8, 12, 0.30)
	second := Rebuild(windows, oneMonitor(), 8, 12, 8, 12, 0.30)

	if !first.Virtual.Equal(second.Virtual) {
		t.Fatal("two rebuilds with no intervening activity should be byte-identical")
	}
}

func TestMonitorBoundaryWindowAppearsInBothMonitorsOnce(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, Bounds: geometry.Rect{Left: 0, Top: 0, Right: 1200, Bottom: 800}},
		{ID: 1, Bounds: geometry.Rect{Left: 1200, Top: 0, Right: 2400, Bottom: 800}},
	}
	// Straddles the monitor boundary at x=1200, roughly even split.
	windows := []tracker.WindowInfo{
		{Handle: 1, Rect: geometry.Rect{Left: 1100, Top: 0, Right: 1300, Bottom: 100}, Manageable: true},
	}

	virtualCols := VirtualColsForMonitorCount(12, 2)
	result := Rebuild(windows, monitors, 8, virtualCols, 8, 12, 0.30)

	if _, ok := result.MonitorCells[1][0]; !ok {
		t.Fatal("expected window to register in monitor 0")
	}
	if _, ok := result.MonitorCells[1][1]; !ok {
		t.Fatal("expected window to register in monitor 1")
	}

	if len(result.VirtualCells[1]) == 0 {
		t.Fatal("expected at least one virtual cell")
	}
}

func TestVirtualColsForMonitorCount(t *testing.T) {
	if got := VirtualColsForMonitorCount(12, 2); got != 24 {
		t.Fatalf("got %d, want 24", got)
	}
}
