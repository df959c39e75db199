package async

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout marks a timeout produced by WithTimeout or WaitFor.
var ErrTimeout = errors.New("timed out")

// WithTimeout races op against d. If op settles first its outcome is
// returned; otherwise an ErrTimeout-wrapped error is returned and op is
// abandoned, not cancelled — its eventual side effects are untracked by the
// caller. The result channel is buffered so the abandoned goroutine never
// blocks.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := op(ctx)
		ch <- outcome{v, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case o := <-ch:
		return o.v, o.err
	case <-timer.C:
		return zero, fmt.Errorf("operation exceeded %s: %w", d, ErrTimeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// WaitFor polls pred every interval until it reports true, pred fails, or
// timeout elapses. The predicate is evaluated once immediately.
func WaitFor(ctx context.Context, interval, timeout time.Duration, pred func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().Add(interval).After(deadline) {
			return fmt.Errorf("condition not met within %s: %w", timeout, ErrTimeout)
		}

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
