// Package workerpool provides a generic bounded worker pool for running
// a function over a slice of items concurrently, with per-item error
// isolation.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Run executes fn for each item using up to workers goroutines and returns
// every item error joined, or nil if all succeed. One failing item never
// stops the others.
func Run[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) error {
	return errors.Join(RunEach(ctx, items, workers, fn)...)
}

// RunEach is like Run but returns the error of each item at its index.
// Items not started because ctx was cancelled report ctx.Err(). A panic in
// fn is recovered and reported as that item's error.
func RunEach[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) []error {
	errs := make([]error, len(items))
	if len(items) == 0 {
		return errs
	}
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}

		wg.Add(1)
		go func(i int, it T) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("worker panic: %v", r)
				}
			}()
			errs[i] = fn(ctx, it)
		}(i, item)
	}

	wg.Wait()
	return errs
}
