package pathfind

import "github.com/ChuLiYu/gridpath/internal/grid"

// node is the per-search record of one discovered cell.
type node struct {
	cell   *grid.Cell
	g      float64
	h      float64
	parent *node
	index  int // position in the open heap, -1 when not queued
	closed bool
}

// f is always derived, never stored.
func (n *node) f() float64 { return n.g + n.h }

// openSet is a min-heap ordered by f, then by h.
type openSet []*node

func (q openSet) Len() int { return len(q) }

func (q openSet) Less(i, j int) bool {
	fi, fj := q[i].f(), q[j].f()
	if fi != fj {
		return fi < fj
	}
	return q[i].h < q[j].h
}

func (q openSet) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *openSet) Pop() any {
	old := *q
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	*q = old[:last]
	return n
}
