// Package async holds the concurrency primitives shared by the audit
// pipeline: a bounded, order-preserving task runner, retry with backoff,
// a timeout race, and condition polling.
package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result holds one task's outcome in the slice returned by Map.
type Result[T any] struct {
	Value T
	Err   error
}

// Task is a deferred unit of work executed by Map.
type Task[T any] func(ctx context.Context) (T, error)

// Map executes tasks with at most limit in flight. Results are returned in
// input order regardless of completion order; a failing task fills its own
// slot's Err and never affects siblings. A limit below 1 is treated as 1,
// which degenerates to strict sequential execution.
func Map[T any](ctx context.Context, limit int, tasks []Task[T]) []Result[T] {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[T], len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, task := range tasks {
		g.Go(func() error {
			v, err := task(gctx)
			results[i] = Result[T]{Value: v, Err: err}
			return nil // errors are captured in the result slot
		})
	}
	_ = g.Wait()

	return results
}
