// Package testutil holds helpers shared by package tests.
package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"credstore/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	NotFounds int32
	InUse     int32
	Errors    int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.NotFounds + r.InUse + r.Errors
}

// RunConcurrent runs fn in n goroutines and sorts each outcome by the store
// sentinel it wraps.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, notFounds, inUse, errs atomic.Int32

	for i := range n {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				notFounds.Add(1)
			case errors.Is(err, sentinel.ErrInUse):
				inUse.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		NotFounds: notFounds.Load(),
		InUse:     inUse.Load(),
		Errors:    errs.Load(),
	}
}
