// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package stage dispatches per-item probe work across a bounded worker pool
// with a wall-clock budget and cooperative cancellation.
package stage

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"trkeys/internal/observability"
)

const (
	// DefaultTimeout bounds a single stage's wall-clock time.
	DefaultTimeout = 30 * time.Second
	// pollInterval is how often the orchestrator checks for completion.
	pollInterval = 100 * time.Millisecond
	// reportInterval is how often progress is reported while waiting.
	reportInterval = 5 * time.Second
)

// ProgressFunc receives progress reports while a stage runs.
type ProgressFunc func(stage string, completed, total int)

// Executor runs named stages across a fixed pool of workers. The calling
// goroutine blocks until the stage finishes or times out; on timeout the
// cancel flag is raised and the executor still waits for every worker to
// drain before returning, so no probe ever outlives its stage inputs.
type Executor struct {
	Workers  int
	Timeout  time.Duration
	Observer *observability.StandardObserver
	Progress ProgressFunc
}

// Result describes one stage execution.
type Result struct {
	Completed bool
	Done      int
	Elapsed   time.Duration
}

// NewExecutor returns an executor sized to the available parallelism.
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{
		Workers: workers,
		Timeout: DefaultTimeout,
	}
}

// Run dispatches probe(i) for every i in [0, total) across the worker pool.
// The cancel flag is shared with the probes: probes are expected to check it
// at entry and return immediately once it is set. Run sets it on timeout or
// context cancellation and always waits for the pool to drain. Completed is
// false when the time budget was exhausted before all items finished.
func (e *Executor) Run(ctx context.Context, name string, total int, cancel *atomic.Bool, probe func(int)) Result {
	start := time.Now()
	var finishTiming func(bool, map[string]interface{})
	if e.Observer != nil {
		finishTiming = e.Observer.StartTiming("stage_executor", "run_stage", name)
	}
	finishStep := e.startStep(name, total)

	var completed atomic.Int64
	if total > 0 {
		var next atomic.Int64
		var wg sync.WaitGroup
		done := make(chan struct{})

		workers := e.Workers
		if workers > total {
			workers = total
		}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for !cancel.Load() {
					i := int(next.Add(1)) - 1
					if i >= total {
						return
					}
					probe(i)
					completed.Add(1)
				}
			}()
		}
		go func() {
			wg.Wait()
			close(done)
		}()

		timeout := e.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		nextReport := reportInterval
		timedOut := false

	wait:
		for {
			select {
			case <-done:
				break wait
			case <-ctx.Done():
				cancel.Store(true)
				timedOut = true
				<-done
				break wait
			case <-time.After(pollInterval):
			}
			elapsed := time.Since(start)
			if elapsed > timeout {
				cancel.Store(true)
				timedOut = true
				// Cancellation is cooperative: wait for the full drain so no
				// worker is left referencing stage-local state.
				<-done
				break wait
			}
			if elapsed > nextReport {
				if e.Progress != nil {
					e.Progress(name, int(completed.Load()), total)
				}
				nextReport += reportInterval
			}
		}

		if timedOut {
			res := Result{Completed: false, Done: int(completed.Load()), Elapsed: time.Since(start)}
			if finishTiming != nil {
				finishTiming(false, map[string]interface{}{
					"total_items": total,
					"done_items":  res.Done,
					"timed_out":   true,
				})
			}
			finishStep(false, fmt.Sprintf("%d/%d items", res.Done, total))
			return res
		}
	}

	if e.Progress != nil {
		e.Progress(name, int(completed.Load()), total)
	}
	res := Result{Completed: true, Done: int(completed.Load()), Elapsed: time.Since(start)}
	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"total_items": total,
			"done_items":  res.Done,
		})
	}
	finishStep(true, fmt.Sprintf("%d/%d items", res.Done, total))
	return res
}

// startStep opens a debug trace step for a stage when a debug observer is
// attached. The returned closure is always safe to call.
func (e *Executor) startStep(name string, total int) func(success bool, details string) {
	if e.Observer == nil || e.Observer.DebugObserver == nil {
		return func(bool, string) {}
	}
	return e.Observer.DebugObserver.StartStep("stage_executor", name, fmt.Sprintf("%d items", total))
}

// RunSerial executes probe(i) for every item on the calling goroutine,
// honoring the cancel flag between items. Used for the small single-threaded
// passes where pool dispatch would cost more than the work.
func (e *Executor) RunSerial(name string, total int, cancel *atomic.Bool, probe func(int)) Result {
	start := time.Now()
	finishStep := e.startStep(name, total)
	done := 0
	for i := 0; i < total; i++ {
		if cancel.Load() {
			finishStep(false, fmt.Sprintf("%d/%d items", done, total))
			return Result{Completed: false, Done: done, Elapsed: time.Since(start)}
		}
		probe(i)
		done++
	}
	if e.Progress != nil {
		e.Progress(name, done, total)
	}
	finishStep(true, fmt.Sprintf("%d/%d items", done, total))
	return Result{Completed: true, Done: done, Elapsed: time.Since(start)}
}
