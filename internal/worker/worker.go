// ============================================================================
// gridpath Worker - Search Execution Unit
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Function: Work unit that runs Search Jobs, each Worker runs in an independent goroutine
//
// How it works:
//   Each Worker is an independent goroutine that continuously executes the following loop:
//   1. Receive task from taskCh (blocking wait) or exit on stopCh
//   2. Run the job's search body to completion
//   3. Send a Result summary to resultCh
//   4. Repeat until the pool stops
//
// No Timeout:
//   Search Jobs cannot be cancelled. A job always runs to completion once a
//   worker picks it up; the search itself is bounded by the grid cell count.
//
// Panic Recovery:
//   A panic inside a search is turned into a failed Result so one bad job
//   does not take the worker down.
//
// ============================================================================

package worker

import (
	"fmt"
	"log/slog"
	"time"
)

// Worker represents a work execution unit
type Worker struct {
	id       int             // Worker unique identifier, used for logging and debugging
	taskCh   <-chan Task     // Task channel (read-only)
	resultCh chan<- Result   // Result channel (write-only)
	stopCh   <-chan struct{} // Closed when the pool stops
}

// newWorker creates a new Worker instance
func newWorker(id int, taskCh <-chan Task, resultCh chan<- Result, stopCh <-chan struct{}) *Worker {
	return &Worker{
		id:       id,
		taskCh:   taskCh,
		resultCh: resultCh,
		stopCh:   stopCh,
	}
}

// Run is the main loop of Worker
func (w *Worker) Run() {
	for {
		select {
		case <-w.stopCh:
			return
		case task := <-w.taskCh:
			result := w.execute(task)

			select {
			case w.resultCh <- result:
			default:
				// The job's done flag is authoritative; the result is only a
				// summary for metrics.
				slog.Warn("Result channel full, dropping summary",
					"worker", w.id,
					"jobID", result.JobID)
			}
		}
	}
}

// execute runs the search body of one job
func (w *Worker) execute(task Task) (result Result) {
	job := task.Job
	start := time.Now()
	result = Result{
		JobID:     job.ID(),
		QueueWait: start.Sub(task.EnqueuedAt),
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Search panicked", "worker", w.id, "jobID", job.ID(), "panic", r)
			result.Error = fmt.Errorf("search panicked: %v", r)
			result.Duration = time.Since(start)
		}
	}()

	if err := job.Run(); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	res := job.Result()
	result.Found = res.Found
	result.PathLength = len(res.Path)
	result.Cost = res.TotalCost
	result.Expanded = res.ExpandedCells
	result.Error = job.Err()
	result.Duration = time.Since(start)
	return result
}
