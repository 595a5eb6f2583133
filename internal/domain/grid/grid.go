// Package grid computes the virtual and per-monitor cell matrices from a
// window-tracker snapshot. Matrices are rebuilt wholesale each tick rather
// than incrementally diffed, per the tracker's rebuild_grids contract.
package grid

import (
	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/tracker"
)

// State classifies a single cell.
type State int

const (
	// Empty means no tracked window covers the cell at or above the threshold.
	Empty State = iota
	// Occupied means at least one window covers the cell at or above the
	// threshold; when several do, Rebuild records the one it processed last.
	Occupied
	// OffScreen means the cell falls outside every monitor's bounds; only
	// possible in the virtual grid, when monitors differ in size or are
	// arranged so their union is not a filled rectangle.
	OffScreen
)

// Cell is one entry of a Matrix.
type Cell struct {
	State  State
	Handle tracker.Handle // valid only when State == Occupied
}

// Matrix is a rectangular R x C array of cell states, stored row-major.
type Matrix struct {
	Rows, Cols int
	Bounds     geometry.Rect
	cells      []Cell
}

// NewMatrix allocates an empty rows x cols matrix over bounds.
func NewMatrix(rows, cols int, bounds geometry.Rect) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Bounds: bounds, cells: make([]Cell, rows*cols)}
}

func (m *Matrix) index(row, col int) int { return row*m.Cols + col }

// At returns the cell at (row, col).
func (m *Matrix) At(row, col int) Cell {
	return m.cells[m.index(row, col)]
}

func (m *Matrix) set(row, col int, c Cell) {
	m.cells[m.index(row, col)] = c
}

// CellBounds returns the pixel bounds of cell (row, col).
func (m *Matrix) CellBounds(row, col int) geometry.Rect {
	return geometry.CellBounds(row, col, m.Rows, m.Cols, m.Bounds)
}

// Equal reports whether two matrices have identical dimensions, bounds, and
// cell contents — used by the GetGridState idempotence property (two calls
// with no intervening activity must return byte-identical matrices).
func (m *Matrix) Equal(other *Matrix) bool {
	if other == nil || m.Rows != other.Rows || m.Cols != other.Cols || m.Bounds != other.Bounds {
		return false
	}

	for i, c := range m.cells {
		if other.cells[i] != c {
			return false
		}
	}

	return true
}

// Monitor is an immutable-for-the-session physical display record.
type Monitor struct {
	ID       int
	Bounds   geometry.Rect
	WorkArea geometry.Rect
	Width    int
	Height   int
}

// Result is the outcome of one Rebuild pass.
type Result struct {
	Virtual      *Matrix
	PerMonitor   map[int]*Matrix
	VirtualCells map[tracker.Handle][]geometry.Cell
	MonitorCells map[tracker.Handle]map[int][]geometry.Cell
}

// Rebuild computes the virtual grid (virtualRows x virtualCols over the
// union of all monitor bounds) and one monitorRows x monitorCols grid per
// monitor, from the given window snapshot. Coverage at or above threshold
// assigns a window to a cell (invariant 1: closed lower bound).
func Rebuild(windows []tracker.WindowInfo, monitors []Monitor, virtualRows, virtualCols, monitorRows, monitorCols int, threshold float64) Result {
	virtualBounds := unionBounds(monitors)

	virtual := NewMatrix(virtualRows, virtualCols, virtualBounds)
	markOffScreen(virtual, monitors)

	perMonitor := make(map[int]*Matrix, len(monitors))
	for _, mon := range monitors {
		perMonitor[mon.ID] = NewMatrix(monitorRows, monitorCols, mon.Bounds)
	}

	virtualCells := make(map[tracker.Handle][]geometry.Cell, len(windows))
	monitorCells := make(map[tracker.Handle]map[int][]geometry.Cell, len(windows))

	for _, w := range windows {
		if !w.Manageable {
			continue
		}

		vCells := geometry.OccupiedCells(w.Rect, virtualBounds, virtualRows, virtualCols, threshold)
		virtualCells[w.Handle] = vCells

		for _, c := range vCells {
			virtual.set(c.Row, c.Col, Cell{State: Occupied, Handle: w.Handle})
		}

		perWindowMonitorCells := make(map[int][]geometry.Cell)

		for _, mon := range monitors {
			mCells := geometry.OccupiedCells(w.Rect, mon.Bounds, monitorRows, monitorCols, threshold)
			if len(mCells) == 0 {
				continue
			}

			perWindowMonitorCells[mon.ID] = mCells
			mat := perMonitor[mon.ID]

			for _, c := range mCells {
				mat.set(c.Row, c.Col, Cell{State: Occupied, Handle: w.Handle})
			}
		}

		monitorCells[w.Handle] = perWindowMonitorCells
	}

	return Result{
		Virtual:      virtual,
		PerMonitor:   perMonitor,
		VirtualCells: virtualCells,
		MonitorCells: monitorCells,
	}
}

func unionBounds(monitors []Monitor) geometry.Rect {
	var union geometry.Rect
	for _, mon := range monitors {
		union = union.Union(mon.Bounds)
	}

	return union
}

// markOffScreen marks every virtual cell whose center does not fall within
// any monitor's bounds as OffScreen. Invariant 2 (sum of per-monitor cell
// areas equals monitor bounds area) is unaffected: OffScreen only occurs in
// the virtual grid, never in a per-monitor grid.
func markOffScreen(virtual *Matrix, monitors []Monitor) {
	for row := 0; row < virtual.Rows; row++ {
		for col := 0; col < virtual.Cols; col++ {
			cellRect := virtual.CellBounds(row, col)
			x, y := cellRect.Center()

			covered := false

			for _, mon := range monitors {
				if x >= mon.Bounds.Left && x < mon.Bounds.Right && y >= mon.Bounds.Top && y < mon.Bounds.Bottom {
					covered = true

					break
				}
			}

			if !covered {
				virtual.set(row, col, Cell{State: OffScreen})
			}
		}
	}
}

// VirtualColsForMonitorCount returns the virtual grid's column count given a
// per-monitor column count and the number of monitors, per spec ("virtual
// rows Rv = R, virtual cols Cv = C * monitor_count").
func VirtualColsForMonitorCount(monitorCols, monitorCount int) int {
	if monitorCount < 1 {
		monitorCount = 1
	}

	return monitorCols * monitorCount
}
