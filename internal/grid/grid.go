// ============================================================================
// gridpath Grid - Cell storage and coordinate lookup
// ============================================================================
//
// Package: internal/grid
// File: grid.go
// Function: Owns the 3D array of Cells and answers coordinate→Cell lookups
//
// Concurrency:
//   Lookup takes the read lock only for the duration of the index access, so
//   any number of searches may resolve cells at the same time. The mutators
//   (SetWalkable, SetKind, SetWorldRef) take the write lock and are meant for
//   level construction; calling them while a search is in flight is outside
//   the contract.
//
// Identity:
//   Cells are allocated once in New and never replaced, so the same
//   coordinates always resolve to the same *Cell.
//
// ============================================================================

package grid

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ChuLiYu/gridpath/pkg/types"
)

var (
	// ErrInvalidSize is returned when a grid dimension is not positive
	ErrInvalidSize = errors.New("grid dimensions must be positive")
	// ErrOutOfBounds is returned by mutators for coordinates outside the grid
	ErrOutOfBounds = errors.New("coordinate out of bounds")
)

// Grid is a fixed-size 3D array of cells.
type Grid struct {
	mu    sync.RWMutex
	sizeX int
	sizeY int
	sizeZ int
	cells []*Cell // index = x + sizeX*(y + sizeY*z)
}

// New allocates a grid of sizeX*sizeY*sizeZ walkable ground cells.
func New(sizeX, sizeY, sizeZ int) (*Grid, error) {
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidSize, sizeX, sizeY, sizeZ)
	}

	g := &Grid{
		sizeX: sizeX,
		sizeY: sizeY,
		sizeZ: sizeZ,
		cells: make([]*Cell, sizeX*sizeY*sizeZ),
	}
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				g.cells[g.index(x, y, z)] = newCell(types.Coord{X: x, Y: y, Z: z})
			}
		}
	}
	return g, nil
}

func (g *Grid) index(x, y, z int) int {
	return x + g.sizeX*(y+g.sizeY*z)
}

func (g *Grid) inBounds(x, y, z int) bool {
	return x >= 0 && x < g.sizeX &&
		y >= 0 && y < g.sizeY &&
		z >= 0 && z < g.sizeZ
}

// Lookup returns the cell at (x, y, z), or nil when out of bounds.
func (g *Grid) Lookup(x, y, z int) *Cell {
	if !g.inBounds(x, y, z) {
		return nil
	}

	g.mu.RLock()
	c := g.cells[g.index(x, y, z)]
	g.mu.RUnlock()
	return c
}

// At is Lookup keyed by a Coord.
func (g *Grid) At(c types.Coord) *Cell {
	return g.Lookup(c.X, c.Y, c.Z)
}

// Contains reports whether c is a cell owned by this grid.
func (g *Grid) Contains(c *Cell) bool {
	if c == nil {
		return false
	}
	return g.At(c.Coord()) == c
}

// Size returns the grid dimensions.
func (g *Grid) Size() (x, y, z int) {
	return g.sizeX, g.sizeY, g.sizeZ
}

// CellCount returns the total number of cells.
func (g *Grid) CellCount() int {
	return len(g.cells)
}

// WalkableCount returns how many cells are walkable.
func (g *Grid) WalkableCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, c := range g.cells {
		if c.walkable {
			n++
		}
	}
	return n
}

// SetWalkable marks the cell at c walkable or blocked.
func (g *Grid) SetWalkable(c types.Coord, walkable bool) error {
	return g.mutate(c, func(cell *Cell) { cell.walkable = walkable })
}

// SetKind tags the cell at c.
func (g *Grid) SetKind(c types.Coord, kind types.CellKind) error {
	return g.mutate(c, func(cell *Cell) { cell.kind = kind })
}

// SetWorldRef attaches the external world handle of the cell at c.
func (g *Grid) SetWorldRef(c types.Coord, ref any) error {
	return g.mutate(c, func(cell *Cell) { cell.worldRef = ref })
}

func (g *Grid) mutate(c types.Coord, fn func(*Cell)) error {
	if !g.inBounds(c.X, c.Y, c.Z) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.cells[g.index(c.X, c.Y, c.Z)])
	return nil
}
