package pathfind

import (
	"math/rand"
	"testing"

	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/stretchr/testify/require"
)

// newGrid builds a grid where every cell in blocked is unwalkable.
func newGrid(t *testing.T, sx, sy, sz int, blocked ...types.Coord) *grid.Grid {
	t.Helper()
	g, err := grid.New(sx, sy, sz)
	require.NoError(t, err)
	for _, c := range blocked {
		require.NoError(t, g.SetWalkable(c, false))
	}
	return g
}

// randomGrid blocks each cell with the given probability.
func randomGrid(t *testing.T, rng *rand.Rand, sx, sy, sz int, density float64) *grid.Grid {
	t.Helper()
	g := newGrid(t, sx, sy, sz)
	for z := 0; z < sz; z++ {
		for y := 0; y < sy; y++ {
			for x := 0; x < sx; x++ {
				if rng.Float64() < density {
					require.NoError(t, g.SetWalkable(types.Coord{X: x, Y: y, Z: z}, false))
				}
			}
		}
	}
	return g
}

func walkableCells(g *grid.Grid) []*grid.Cell {
	sx, sy, sz := g.Size()
	var out []*grid.Cell
	for z := 0; z < sz; z++ {
		for y := 0; y < sy; y++ {
			for x := 0; x < sx; x++ {
				if c := g.Lookup(x, y, z); c.Walkable() {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// referenceCosts runs an exhaustive Dijkstra over the same move graph and
// returns the cheapest known cost to every reachable cell.
func referenceCosts(g *grid.Grid, start *grid.Cell, allowVertical bool) map[*grid.Cell]int {
	dist := map[*grid.Cell]int{start: 0}
	done := map[*grid.Cell]bool{}
	for {
		var cur *grid.Cell
		for c, d := range dist {
			if done[c] {
				continue
			}
			if cur == nil || d < dist[cur] {
				cur = c
			}
		}
		if cur == nil {
			return dist
		}
		done[cur] = true
		for _, n := range Neighbors(g, cur, allowVertical) {
			nd := dist[cur] + Distance(cur.Coord(), n.Coord())
			if old, ok := dist[n]; !ok || nd < old {
				dist[n] = nd
			}
		}
	}
}

func coordsOf(cells []*grid.Cell) []types.Coord {
	out := make([]types.Coord, len(cells))
	for i, c := range cells {
		out[i] = c.Coord()
	}
	return out
}
