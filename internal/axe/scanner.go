package axe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beacon/internal/async"
	"beacon/internal/logging"
	"beacon/internal/surface"
)

const presenceExpr = `typeof window.axe !== "undefined"`

// engineOutput mirrors the object returned by the in-page run expression.
type engineOutput struct {
	Violations   []Rule `json:"violations"`
	Passes       []Rule `json:"passes"`
	Incomplete   []Rule `json:"incomplete"`
	Inapplicable []Rule `json:"inapplicable"`
}

// Scanner runs the rule engine against the current page.
type Scanner struct {
	opts Options
	log  *slog.Logger

	sleep func(ctx context.Context, d time.Duration) // test seam
}

// NewScanner returns a Scanner with the given options.
func NewScanner(opts Options) *Scanner {
	return &Scanner{
		opts:  opts.withDefaults(),
		log:   logging.New("scanner"),
		sleep: sleepCtx,
	}
}

// Scan runs the primary path, falls back to the legacy path on any primary
// error, and returns an empty flagged result when both fail. Scan never
// returns an error; total failure is expressed on the Result so the suite
// can continue to the next page.
func (s *Scanner) Scan(ctx context.Context, sf surface.Surface, pageName string, runOnly []string) Result {
	start := time.Now()

	res, err := s.primary(ctx, sf, pageName, runOnly)
	if err == nil {
		res.Duration = time.Since(start)
		return res
	}
	s.log.Warn("primary scan failed, using legacy fallback", "page", pageName, "error", err)

	res, fbErr := s.legacy(ctx, sf, pageName)
	if fbErr == nil {
		res.UsedLegacyFallback = true
		res.Duration = time.Since(start)
		return res
	}
	s.log.Error("legacy fallback failed", "page", pageName, "error", fbErr)

	return Result{
		PageName:       pageName,
		Timestamp:      time.Now(),
		Violations:     []Rule{},
		Passes:         []Rule{},
		Incomplete:     []Rule{},
		Inapplicable:   []Rule{},
		FailedFallback: true,
		Error:          fbErr.Error(),
		Duration:       time.Since(start),
	}
}

// primary injects the engine once per fresh page context, verifies presence
// via a short poll, waits for the page to settle, and races the run against
// the configured timeout.
func (s *Scanner) primary(ctx context.Context, sf surface.Surface, pageName string, runOnly []string) (Result, error) {
	if err := s.ensureInjected(ctx, sf); err != nil {
		return Result{}, err
	}

	s.sleep(ctx, s.opts.SettleDelay)

	expr, err := buildRunExpr(s.opts, runOnly, true)
	if err != nil {
		return Result{}, err
	}

	out, err := async.WithTimeout(ctx, s.opts.Timeout, func(ctx context.Context) (engineOutput, error) {
		var out engineOutput
		if err := sf.Evaluate(ctx, expr, &out); err != nil {
			return out, fmt.Errorf("engine run: %w", err)
		}
		return out, nil
	})
	if err != nil {
		return Result{}, err
	}

	return resultFrom(pageName, out), nil
}

// legacy is the degraded-but-tolerant path: a longer fixed settle delay,
// unconditional injection with a fixed short delay instead of poll-based
// verification, no rule subset, and no timeout race.
func (s *Scanner) legacy(ctx context.Context, sf surface.Surface, pageName string) (Result, error) {
	s.sleep(ctx, s.opts.LegacySettleDelay)

	var present bool
	if err := sf.Evaluate(ctx, presenceExpr, &present); err != nil {
		return Result{}, fmt.Errorf("legacy presence check: %w", err)
	}
	if !present {
		if s.opts.Source == "" {
			return Result{}, fmt.Errorf("rule engine not present and no source configured")
		}
		if err := sf.Evaluate(ctx, s.opts.Source, nil); err != nil {
			return Result{}, fmt.Errorf("legacy inject: %w", err)
		}
		s.sleep(ctx, 300*time.Millisecond)
	}

	expr, err := buildRunExpr(s.opts, nil, false)
	if err != nil {
		return Result{}, err
	}

	var out engineOutput
	if err := sf.Evaluate(ctx, expr, &out); err != nil {
		return Result{}, fmt.Errorf("legacy engine run: %w", err)
	}
	return resultFrom(pageName, out), nil
}

// ensureInjected injects the engine when absent and polls until its global
// handle is visible.
func (s *Scanner) ensureInjected(ctx context.Context, sf surface.Surface) error {
	var present bool
	if err := sf.Evaluate(ctx, presenceExpr, &present); err != nil {
		return fmt.Errorf("presence check: %w", err)
	}
	if !present {
		if s.opts.Source == "" {
			return fmt.Errorf("rule engine not present and no source configured")
		}
		if err := sf.Evaluate(ctx, s.opts.Source, nil); err != nil {
			return fmt.Errorf("inject rule engine: %w", err)
		}
	}

	err := async.WaitFor(ctx, 100*time.Millisecond, s.opts.VerifyTimeout, func(ctx context.Context) (bool, error) {
		var ok bool
		if err := sf.Evaluate(ctx, presenceExpr, &ok); err != nil {
			return false, err
		}
		return ok, nil
	})
	if err != nil {
		return fmt.Errorf("verify rule engine: %w", err)
	}
	return nil
}

func resultFrom(pageName string, out engineOutput) Result {
	res := Result{
		PageName:     pageName,
		Timestamp:    time.Now(),
		Violations:   out.Violations,
		Passes:       out.Passes,
		Incomplete:   out.Incomplete,
		Inapplicable: out.Inapplicable,
	}
	if res.Violations == nil {
		res.Violations = []Rule{}
	}
	if res.Passes == nil {
		res.Passes = []Rule{}
	}
	if res.Incomplete == nil {
		res.Incomplete = []Rule{}
	}
	if res.Inapplicable == nil {
		res.Inapplicable = []Rule{}
	}
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
