package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	// Tasks complete in scrambled order; results must come back by index.
	delays := []time.Duration{40, 5, 25, 1, 15} // ms
	tasks := make([]Task[int], len(delays))
	for i, d := range delays {
		tasks[i] = func(ctx context.Context) (int, error) {
			time.Sleep(d * time.Millisecond)
			return i, nil
		}
	}

	results := Map(context.Background(), 3, tasks)

	got := make([]int, len(results))
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("task %d: unexpected error %v", i, r.Err)
		}
		got[i] = r.Value
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, got); diff != "" {
		t.Errorf("result order mismatch (-want +got):\n%s", diff)
	}
}

func TestMap_RespectsLimit(t *testing.T) {
	const limit = 2
	var inFlight, peak atomic.Int32

	tasks := make([]Task[struct{}], 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return struct{}{}, nil
		}
	}

	Map(context.Background(), limit, tasks)

	if p := peak.Load(); p > limit {
		t.Errorf("observed %d tasks in flight, limit is %d", p, limit)
	}
}

func TestMap_FailureStaysInSlot(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[string]{
		func(ctx context.Context) (string, error) { return "a", nil },
		func(ctx context.Context) (string, error) { return "", boom },
		func(ctx context.Context) (string, error) { return "c", nil },
	}

	results := Map(context.Background(), 1, tasks)

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("sibling tasks affected by failure: %v / %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("slot 1 error = %v, want %v", results[1].Err, boom)
	}
	if results[0].Value != "a" || results[2].Value != "c" {
		t.Errorf("values lost: %q %q", results[0].Value, results[2].Value)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var calls int
	op := func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", fmt.Errorf("transient %d", calls)
		}
		return "ok", nil
	}

	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, Factor: 2}
	got, err := Retry(context.Background(), cfg, op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestRetry_NonRetryableCalledOnce(t *testing.T) {
	permanent := errors.New("permanent")
	var calls int
	op := func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	}

	cfg := RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Factor:      2,
		Retryable:   func(error) bool { return false },
	}
	_, err := Retry(context.Background(), cfg, op)

	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if err != permanent {
		t.Errorf("error = %v, want the original error unmodified", err)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	last := errors.New("still broken")
	var calls int
	op := func(ctx context.Context) (int, error) {
		calls++
		return 0, last
	}

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2}
	start := time.Now()
	_, err := Retry(context.Background(), cfg, op)
	elapsed := time.Since(start)

	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if !errors.Is(err, last) {
		t.Errorf("error = %v, want %v", err, last)
	}
	// Two waits (1ms + 2ms); no delay after the final attempt.
	if elapsed > 500*time.Millisecond {
		t.Errorf("retry took %s, suggesting a delay after the final attempt", elapsed)
	}
}

func TestWithTimeout_FastOperationWins(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestWithTimeout_SlowOperationAbandoned(t *testing.T) {
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 42, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestWaitFor_ConditionEventuallyTrue(t *testing.T) {
	var polls int
	err := WaitFor(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		polls++
		return polls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if polls != 3 {
		t.Errorf("predicate evaluated %d times, want 3", polls)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	err := WaitFor(context.Background(), 5*time.Millisecond, 20*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestWaitFor_PredicateErrorAborts(t *testing.T) {
	boom := errors.New("probe failed")
	err := WaitFor(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
