package asl

import (
	"context"
	"sync"
)

// runBounded runs n independent units of work with at most maxConcurrency
// in flight at once (0 means unbounded, §4.3), scheduled in index order but
// with no guarantee on completion order (§5.2). Results are collected into
// a slice indexed by the unit's position, never exposing completion order to
// the caller. If cancelOnError is set, the first error triggers cancellation
// of ctx for all still-pending units; already-started units are allowed to
// finish and their results discarded by the caller.
func runBounded(ctx context.Context, n, maxConcurrency int, cancelOnError bool, work func(ctx context.Context, index int) (Value, error)) ([]Value, []error) {
	results := make([]Value, n)
	errs := make([]error, n)
	if n == 0 {
		return results, errs
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, boundedWidth(n, maxConcurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := false

	for i := 0; i < n; i++ {
		i := i
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			mu.Lock()
			shouldSkip := failed && cancelOnError
			mu.Unlock()
			if shouldSkip {
				errs[i] = &WorkflowError{Code: CodeCancelled, Cause: "cancelled before starting"}
				return
			}

			v, err := work(workCtx, i)
			results[i] = v
			errs[i] = err

			if err != nil && cancelOnError {
				mu.Lock()
				failed = true
				mu.Unlock()
				cancel()
			}
		}()
	}

	wg.Wait()
	return results, errs
}

func boundedWidth(n, maxConcurrency int) int {
	if maxConcurrency <= 0 || maxConcurrency > n {
		return n
	}
	return maxConcurrency
}
