package pathfind

import "github.com/ChuLiYu/gridpath/pkg/types"

// Step costs in fixed point: a horizontal diagonal is ~1.4, a straight or
// vertical step is 1.0, both scaled by ten.
const (
	DiagonalCost = 14
	StraightCost = 10
)

// Distance is the movement cost between a and b. The heuristic uses the same
// formula. Horizontal movement is octile on the x/z plane, vertical
// displacement is always added at the straight rate.
func Distance(a, b types.Coord) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	dz := abs(a.Z - b.Z)

	if dx > dz {
		return DiagonalCost*dz + StraightCost*(dx-dz) + StraightCost*dy
	}
	return DiagonalCost*dx + StraightCost*(dz-dx) + StraightCost*dy
}

// PathCost sums Distance over consecutive cells of coords.
func PathCost(coords []types.Coord) int {
	total := 0
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
