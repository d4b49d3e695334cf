package pathfind

import (
	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/pkg/types"
)

// CellSource resolves coordinates to cells. *grid.Grid satisfies it.
// Lookup must be safe for concurrent readers and return nil out of bounds.
type CellSource interface {
	Lookup(x, y, z int) *grid.Cell
	CellCount() int
}

// NeighborFilter is an extra acceptance rule applied after the built-in
// checks. Returning false drops candidate as a neighbor of current.
type NeighborFilter func(current, candidate *grid.Cell) bool

// DenyHeading rejects moves whose horizontal heading is (dx, dz). A zero
// component matches any movement on that axis, so DenyHeading(-1, 0) forbids
// every move towards lower x.
func DenyHeading(dx, dz int) NeighborFilter {
	return func(current, candidate *grid.Cell) bool {
		mx := sign(candidate.X() - current.X())
		mz := sign(candidate.Z() - current.Z())
		if (dx == 0 || mx == dx) && (dz == 0 || mz == dz) {
			return false
		}
		return true
	}
}

// Neighbors returns the cells reachable in one move from node. With
// allowVertical the 26 surrounding offsets are tried, otherwise only the 8
// lateral ones.
func Neighbors(cells CellSource, node *grid.Cell, allowVertical bool, filters ...NeighborFilter) []*grid.Cell {
	e := expander{cells: cells, allowVertical: allowVertical, filters: filters}
	return e.neighbors(node, nil)
}

type expander struct {
	cells         CellSource
	allowVertical bool
	filters       []NeighborFilter
}

// neighbors appends the accepted neighbors of node to buf. Offsets whose
// ledge fallback lands on an already collected cell are reported once.
func (e *expander) neighbors(node *grid.Cell, buf []*grid.Cell) []*grid.Cell {
	first := len(buf)
	minY, maxY := 0, 0
	if e.allowVertical {
		minY, maxY = -1, 1
	}

	for dx := -1; dx <= 1; dx++ {
		for dy := minY; dy <= maxY; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				if n := e.resolve(node, dx, dy, dz); n != nil && !containsCell(buf[first:], n) {
					buf = append(buf, n)
				}
			}
		}
	}
	return buf
}

// resolve picks the cell entered by moving node by (dx, dy, dz), falling back
// to the cell one below (step down) and then one above (step up) the offset
// position when vertical search is on.
func (e *expander) resolve(node *grid.Cell, dx, dy, dz int) *grid.Cell {
	at := node.Coord().Add(dx, dy, dz)

	var found *grid.Cell
	if c := e.lookup(at); walkable(c) {
		found = c
	} else if e.allowVertical {
		if below := e.lookup(at.Add(0, -1, 0)); walkable(below) {
			found = below
		} else if above := e.lookup(at.Add(0, 1, 0)); walkable(above) {
			found = above
		}
	}
	if found == nil || found == node {
		return nil
	}

	// Corner cells are taken from the lateral offset at the current height,
	// not from the resolved step cell.
	if abs(dx) == 1 && abs(dz) == 1 {
		if !walkable(e.lookup(node.Coord().Add(dx, 0, 0))) ||
			!walkable(e.lookup(node.Coord().Add(0, 0, dz))) {
			return nil
		}
	}

	for _, accept := range e.filters {
		if !accept(node, found) {
			return nil
		}
	}
	return found
}

func (e *expander) lookup(c types.Coord) *grid.Cell {
	return e.cells.Lookup(c.X, c.Y, c.Z)
}

func containsCell(cells []*grid.Cell, c *grid.Cell) bool {
	for _, x := range cells {
		if x == c {
			return true
		}
	}
	return false
}

func walkable(c *grid.Cell) bool {
	return c != nil && c.Walkable()
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
