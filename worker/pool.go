// Copyright 2024 The Xraytsubaki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package worker implements the data-parallel batch dispatch used by
// spectrum.Group's batch operations (§5): every task is independent with
// no shared mutable state, so dispatch is a bounded goroutine fan-out
// joined by a single sync.WaitGroup barrier — no work-stealing, no
// persistent pool, since the workload is a one-shot batch of N
// independent spectra rather than a long-lived service.
package worker

import (
	"fmt"
	"sync"
)

// Run executes n independent tasks indexed [0,n), either sequentially
// (parallel=false) or concurrently bounded by maxConcurrency goroutines
// (parallel=true), and returns one error slot per task. A task panicking
// or erroring does not stop the others (§7: "one failure does not abort
// the batch").
func Run(n int, parallel bool, maxConcurrency int, task func(i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	if !parallel {
		for i := 0; i < n; i++ {
			func() {
				defer func() {
					if r := recover(); r != nil {
						errs[i] = fmt.Errorf("task %d panicked: %v", i, r)
					}
				}()
				errs[i] = task(i)
			}()
		}
		return errs
	}

	if maxConcurrency <= 0 {
		maxConcurrency = n
	}
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()
			errs[i] = task(i)
		}()
	}
	wg.Wait()
	return errs
}
