package grid

import "github.com/ChuLiYu/gridpath/pkg/types"

// Cell is the atomic grid unit. Its coordinates never change; walkability,
// kind and the world handle are set while the level is built.
//
// Search scratch (g/h costs, parent) is deliberately absent: each search keeps
// it in its own table so concurrent searches never share mutable state here.
type Cell struct {
	coord    types.Coord
	walkable bool
	kind     types.CellKind
	worldRef any // non-owning handle into the level system
}

func newCell(c types.Coord) *Cell {
	return &Cell{coord: c, walkable: true, kind: types.KindGround}
}

func (c *Cell) Coord() types.Coord { return c.coord }
func (c *Cell) X() int             { return c.coord.X }
func (c *Cell) Y() int             { return c.coord.Y }
func (c *Cell) Z() int             { return c.coord.Z }

// Walkable reports whether an agent may stand on the cell.
func (c *Cell) Walkable() bool { return c.walkable }

// Kind returns the informational cell tag.
func (c *Cell) Kind() types.CellKind { return c.kind }

// WorldRef returns the handle set by the level builder, or nil.
func (c *Cell) WorldRef() any { return c.worldRef }

func (c *Cell) String() string { return c.coord.String() }
