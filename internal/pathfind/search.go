package pathfind

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/pkg/types"
)

var (
	// ErrNilCell is returned when start or target is nil
	ErrNilCell = errors.New("start and target cells are required")
	// ErrIterationLimit is returned when the search expands more cells than
	// the grid holds, which a finite grid cannot legitimately do
	ErrIterationLimit = errors.New("search exceeded grid cell count")
	// ErrBrokenParentChain is returned when retrace cannot walk back to start
	ErrBrokenParentChain = errors.New("parent chain does not reach start")
)

// Result contains the outcome of a search.
type Result struct {
	Path          []*grid.Cell // start excluded, target included; empty when not found
	TotalCost     float64
	ExpandedCells int
	Found         bool
}

// Coords returns the coordinates of the path cells.
func (r Result) Coords() []types.Coord {
	out := make([]types.Coord, len(r.Path))
	for i, c := range r.Path {
		out[i] = c.Coord()
	}
	return out
}

// Options defines parameters for the search.
type Options struct {
	AllowVertical bool
	Filters       []NeighborFilter
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithVertical toggles 3D neighbor expansion. It is on by default.
// Turning it off also disables the step-down and step-up ledge fallbacks, so
// a flat search never leaves the start cell's height.
func WithVertical(allow bool) Option {
	return func(o *Options) { o.AllowVertical = allow }
}

// WithNeighborFilter adds an acceptance rule for neighbor candidates.
func WithNeighborFilter(f NeighborFilter) Option {
	return func(o *Options) { o.Filters = append(o.Filters, f) }
}

// Search finds the lowest-cost walkable path from start to target.
// An unreachable target is not an error: the Result has Found=false and an
// empty Path.
func Search(cells CellSource, start, target *grid.Cell, options ...Option) (Result, error) {
	if start == nil || target == nil {
		return Result{}, ErrNilCell
	}

	opts := Options{AllowVertical: true}
	for _, o := range options {
		o(&opts)
	}

	s := &search{
		cells:  cells,
		target: target,
		expand: expander{cells: cells, allowVertical: opts.AllowVertical, filters: opts.Filters},
		nodes:  make(map[types.Coord]*node),
		limit:  cells.CellCount(),
	}
	return s.run(start)
}

// search holds the state of one invocation. Nothing here outlives run.
type search struct {
	cells  CellSource
	target *grid.Cell
	expand expander
	nodes  map[types.Coord]*node
	open   openSet
	limit  int
}

func (s *search) run(start *grid.Cell) (Result, error) {
	root := &node{cell: start, g: 0, h: heuristic(start, s.target), index: -1}
	s.nodes[start.Coord()] = root
	heap.Push(&s.open, root)

	var (
		expanded int
		buf      []*grid.Cell
	)
	for s.open.Len() > 0 {
		if expanded >= s.limit {
			return Result{ExpandedCells: expanded}, fmt.Errorf("%w: %d expansions", ErrIterationLimit, expanded)
		}

		current := heap.Pop(&s.open).(*node)
		current.closed = true
		expanded++

		if current.cell == s.target {
			path, err := s.retrace(root, current)
			if err != nil {
				return Result{ExpandedCells: expanded}, err
			}
			return Result{
				Path:          path,
				TotalCost:     current.g,
				ExpandedCells: expanded,
				Found:         true,
			}, nil
		}

		buf = s.expand.neighbors(current.cell, buf[:0])
		for _, cell := range buf {
			s.relax(current, cell)
		}
	}

	return Result{Path: []*grid.Cell{}, ExpandedCells: expanded}, nil
}

// relax offers current as a better parent for cell.
func (s *search) relax(current *node, cell *grid.Cell) {
	n, seen := s.nodes[cell.Coord()]
	if seen && n.closed {
		return
	}

	tentative := current.g + float64(Distance(current.cell.Coord(), cell.Coord()))
	inOpen := seen && n.index >= 0
	if inOpen && tentative >= n.g {
		return
	}

	if !seen {
		n = &node{cell: cell, index: -1}
		s.nodes[cell.Coord()] = n
	}
	n.g = tentative
	n.h = heuristic(cell, s.target)
	n.parent = current

	if inOpen {
		heap.Fix(&s.open, n.index)
	} else {
		heap.Push(&s.open, n)
	}
}

// retrace walks parents from end back to start and returns the cells in
// travel order, start excluded.
func (s *search) retrace(start, end *node) ([]*grid.Cell, error) {
	var path []*grid.Cell
	for n := end; n != start; n = n.parent {
		if n == nil || len(path) > s.limit {
			return nil, ErrBrokenParentChain
		}
		path = append(path, n.cell)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	if path == nil {
		path = []*grid.Cell{}
	}
	return path, nil
}

func heuristic(from, to *grid.Cell) float64 {
	return float64(Distance(from.Coord(), to.Coord()))
}
