// ============================================================================
// gridpath Search Job - One-shot asynchronous path request
// ============================================================================
//
// Package: internal/searchjob
// File: job.go
// Function: Wraps a single pathfind.Search invocation so it can run on a
//           worker goroutine while the host loop polls for completion
//
// State Machine:
//   Created ──Run()──> Running ──search body returns──> Done
//
//   - Created → Running: compare-and-swap, a second Run() is rejected
//   - Running → Done: result fields are written first, then done is stored
//     and the Completed() channel is closed
//   - Done is terminal; Deliver() fires the callback at most once
//
// Memory Ordering:
//   path/result/err are written only by the goroutine executing Run() and only
//   before done.Store(true). Readers check Done() (or wait on Completed())
//   before touching them, so the atomic store/load is the only fence needed.
//
// Preconditions:
//   New rejects nil, foreign and unwalkable cells up front, so a running job
//   never fails because of bad input.
//
// ============================================================================

package searchjob

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/pathfind"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/google/uuid"
)

var (
	// ErrNilCell start or target is nil
	ErrNilCell = errors.New("start and target cells are required")
	// ErrOutsideGrid the cell does not belong to the grid being searched
	ErrOutsideGrid = errors.New("cell is not part of the grid")
	// ErrNotWalkable start or target cannot be stood on
	ErrNotWalkable = errors.New("cell is not walkable")
	// ErrAlreadyStarted Run was called more than once
	ErrAlreadyStarted = errors.New("job already started")
	// ErrNotDone Deliver was called before the search finished
	ErrNotDone = errors.New("job not done")
	// ErrAlreadyDelivered the callback has already fired
	ErrAlreadyDelivered = errors.New("job already delivered")
)

// State is the lifecycle position of a job.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Callback receives the found path (start excluded, target included), or an
// empty slice when the target is unreachable.
type Callback func(path []*grid.Cell)

// Grid is what a job needs from the world: cell lookup plus an ownership
// check for precondition validation. *grid.Grid satisfies it.
type Grid interface {
	pathfind.CellSource
	Contains(c *grid.Cell) bool
}

// Job is one path request. It carries no state between invocations and is
// discarded once its callback has been delivered.
type Job struct {
	id         types.JobID
	grid       Grid
	start      *grid.Cell
	target     *grid.Cell
	onComplete Callback
	options    []pathfind.Option

	state     atomic.Int32
	done      atomic.Bool
	delivered atomic.Bool
	completed chan struct{}

	// written by Run before done is set
	result pathfind.Result
	err    error
}

// New validates start and target against g and returns a job in the Created
// state.
func New(g Grid, start, target *grid.Cell, onComplete Callback, options ...pathfind.Option) (*Job, error) {
	if start == nil || target == nil {
		return nil, ErrNilCell
	}
	for _, c := range []*grid.Cell{start, target} {
		if !g.Contains(c) {
			return nil, fmt.Errorf("%w: %s", ErrOutsideGrid, c)
		}
		if !c.Walkable() {
			return nil, fmt.Errorf("%w: %s", ErrNotWalkable, c)
		}
	}

	return &Job{
		id:         types.JobID(uuid.NewString()),
		grid:       g,
		start:      start,
		target:     target,
		onComplete: onComplete,
		options:    options,
		completed:  make(chan struct{}),
	}, nil
}

func (j *Job) ID() types.JobID    { return j.id }
func (j *Job) Start() *grid.Cell  { return j.start }
func (j *Job) Target() *grid.Cell { return j.target }
func (j *Job) State() State       { return State(j.state.Load()) }
func (j *Job) Done() bool         { return j.done.Load() }
func (j *Job) Delivered() bool    { return j.delivered.Load() }

// Completed is closed when the job reaches Done.
func (j *Job) Completed() <-chan struct{} {
	return j.completed
}

// Run executes the search body on the calling goroutine.
func (j *Job) Run() error {
	if !j.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	res, err := pathfind.Search(j.grid, j.start, j.target, j.options...)
	if err != nil || !res.Found {
		res.Path = []*grid.Cell{}
	}
	j.result = res
	j.err = err

	j.state.Store(int32(StateDone))
	j.done.Store(true)
	close(j.completed)
	return nil
}

// Result returns the search outcome. It is only meaningful once Done.
func (j *Job) Result() pathfind.Result {
	if !j.Done() {
		return pathfind.Result{}
	}
	return j.result
}

// Path returns the found path, empty when unreachable or not yet done.
func (j *Job) Path() []*grid.Cell {
	if !j.Done() {
		return []*grid.Cell{}
	}
	return j.result.Path
}

// Err returns an internal search failure (never an unreachable target).
func (j *Job) Err() error {
	if !j.Done() {
		return nil
	}
	return j.err
}

// Deliver invokes the completion callback with the path. It must be called
// after Done and fires at most once.
func (j *Job) Deliver() error {
	if !j.Done() {
		return ErrNotDone
	}
	if !j.delivered.CompareAndSwap(false, true) {
		return ErrAlreadyDelivered
	}
	if j.onComplete != nil {
		j.onComplete(j.result.Path)
	}
	return nil
}
