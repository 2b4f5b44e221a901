// Package exec provides the execution backends used by the spindle index.
//
// Index construction and querying are expressed as a series of data-parallel
// phases: a parallel-for over boxes, tree nodes or query points, followed by
// a full join before the next phase begins. The Executor interface captures
// exactly that capability so the same algorithm code runs unchanged on a
// sequential loop or a shared-memory worker pool.
package exec

import (
	"fmt"
	"runtime"
	"sync"
)

// The Executor interface is implemented by all execution backends.
type Executor interface {
	// Name of the backend, used for logging and stats.
	Name() string

	// Run body for every i in [0, n). Bodies for distinct indices must be
	// mutually independent; they may run concurrently and in any order.
	// For does not return until every body has completed.
	For(n int, body func(i int))

	// The maximum number of bodies that may run concurrently. Sizing hint
	// for chunked reductions; always >= 1.
	Workers() int
}

type sequential struct{}

// NewSequential returns a backend that runs every loop body in order on the
// calling goroutine.
func NewSequential() Executor {
	return sequential{}
}

func (sequential) Name() string { return "sequential" }

func (sequential) Workers() int { return 1 }

func (sequential) For(n int, body func(i int)) {
	for i := 0; i < n; i++ {
		body(i)
	}
}

type parallel struct {
	workers int
}

// NewParallel returns a backend that fans loop bodies out to a pool of
// goroutines, one chunk of the index range per worker. A non-positive
// workers value selects GOMAXPROCS.
func NewParallel(workers int) Executor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &parallel{workers: workers}
}

func (p *parallel) Name() string { return fmt.Sprintf("parallel-%d", p.workers) }

func (p *parallel) Workers() int { return p.workers }

func (p *parallel) For(n int, body func(i int)) {
	if n <= 0 {
		return
	}

	workers := p.workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				body(i)
			}
		}(start, end)
	}
	wg.Wait()
}
