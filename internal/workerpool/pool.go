// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package workerpool implements a small fixed-size goroutine pool for a
// batch of independent jobs: a buffered job channel drained by a fixed
// set of goroutines, joined with a sync.WaitGroup before the caller
// observes any result. The block validator uses it to run per-input
// script checks concurrently while keeping the accept/reject decision
// single-threaded.
package workerpool

import "sync"

// Job is one independent unit of work a Pool runs concurrently with its
// siblings.
type Job func() error

// Pool runs a batch of Jobs across a fixed number of goroutines.
type Pool struct {
	workers int
}

// New returns a Pool with the given number of workers (at least one).
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run dispatches every job across the pool and blocks until all of them
// have completed: the barrier that keeps a block's accept/reject decision
// single-threaded even though its per-input script checks ran concurrently.
// Every job runs to completion regardless of another job's failure; Run
// returns the first non-nil error in job order, if any.
func (p *Pool) Run(jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	type indexedJob struct {
		index int
		job   Job
	}
	work := make(chan indexedJob, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range work {
				errs[item.index] = item.job()
			}
		}()
	}

	for i, job := range jobs {
		work <- indexedJob{index: i, job: job}
	}
	close(work)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
