package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"beacon/internal/async"
	"beacon/internal/axe"
	"beacon/internal/check"
	"beacon/internal/config"
	"beacon/internal/logging"
	"beacon/internal/surface"
)

// ErrRunActive rejects a second suite while one is in flight on the same
// engine instance.
var ErrRunActive = errors.New("audit run already active")

const (
	navRetryDelay  = 500 * time.Millisecond
	navSettleDelay = 500 * time.Millisecond
	reportLimit    = 2
)

// Options are the per-invocation toggles of a suite run.
type Options struct {
	// ContinueOnError keeps processing remaining pages after a page-fatal
	// failure. Default for the CLI is true.
	ContinueOnError bool
	SkipChecks      bool
	SkipReports     bool
}

// Engine drives the audit suite.
type Engine struct {
	cfg       config.RunConfig
	launcher  Launcher
	scanner   Scanner
	registry  *check.Registry
	reporters []Reporter
	log       *slog.Logger

	active atomic.Bool

	// sleep is a seam for tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New wires an engine from its collaborators.
func New(cfg config.RunConfig, launcher Launcher, scanner Scanner, registry *check.Registry, reporters ...Reporter) *Engine {
	return &Engine{
		cfg:       cfg,
		launcher:  launcher,
		scanner:   scanner,
		registry:  registry,
		reporters: reporters,
		log:       logging.New("audit"),
		sleep:     sleepCtx,
	}
}

// Run executes the whole suite. The returned RunResult is populated even
// when err is non-nil; err is only set for setup failures that abort the
// suite before any page is processed. Teardown always runs.
func (e *Engine) Run(ctx context.Context, opts Options) (*RunResult, error) {
	if !e.active.CompareAndSwap(false, true) {
		return nil, ErrRunActive
	}
	defer e.active.Store(false)

	res := &RunResult{ID: uuid.New(), Timestamp: time.Now()}
	start := time.Now()

	e.log.Info("starting audit run", "id", res.ID, "pages", len(e.cfg.Pages))

	if err := os.MkdirAll(filepath.Join(e.cfg.ReportDir, "screenshots"), 0755); err != nil {
		res.addWarning(PhaseSetup, "", fmt.Sprintf("create report directory: %v", err))
	}

	sf, err := e.launcher.Launch(ctx)
	if err != nil {
		res.addError(PhaseSetup, "", err)
		res.Duration = time.Since(start)
		return res, fmt.Errorf("launch application: %w", err)
	}
	defer func() {
		if err := e.launcher.Close(context.WithoutCancel(ctx)); err != nil {
			res.addWarning(PhaseCleanup, "", fmt.Sprintf("close application: %v", err))
		}
	}()

	e.processPages(ctx, sf, res, opts)

	res.Success = len(res.Errors) == 0
	res.Duration = time.Since(start)

	if !opts.SkipReports {
		e.generateReports(ctx, res)
	}

	e.log.Info("audit run finished",
		"id", res.ID,
		"success", res.Success,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"duration", res.Duration)
	return res, nil
}

// pageOutcome carries one page's appendable results so the suite can commit
// them in input order even when pages finish out of order.
type pageOutcome struct {
	scan   *axe.Result
	checks *check.PageChecks
	err    error
}

// processPages walks the configured pages, sequentially or through the
// bounded runner. A page failure under ContinueOnError=false stops further
// pages from starting but never interrupts siblings already in flight.
// Scan and check results land in the aggregate in page input order.
func (e *Engine) processPages(ctx context.Context, sf surface.Surface, res *RunResult, opts Options) {
	pages := e.cfg.Pages

	if e.cfg.MaxConcurrency <= 1 {
		for _, page := range pages {
			out := e.processPage(ctx, sf, page, res, opts)
			res.commit(out)
			if out.err != nil && !opts.ContinueOnError {
				e.log.Warn("aborting remaining pages", "page", page.Name, "error", out.err)
				return
			}
		}
		return
	}

	var aborted atomic.Bool
	tasks := make([]async.Task[pageOutcome], len(pages))
	for i, page := range pages {
		page := page
		tasks[i] = func(ctx context.Context) (pageOutcome, error) {
			if aborted.Load() {
				return pageOutcome{}, nil
			}
			out := e.processPage(ctx, sf, page, res, opts)
			if out.err != nil && !opts.ContinueOnError {
				aborted.Store(true)
			}
			return out, nil
		}
	}
	// Map returns slots by task index, so committing here restores input
	// order regardless of which page finished first.
	for _, slot := range async.Map(ctx, e.cfg.MaxConcurrency, tasks) {
		res.commit(slot.Value)
	}
}

// processPage runs one page end to end: navigate, scan, extra checks.
// Errors and warnings are recorded as they happen; appendable results come
// back in the outcome so the caller controls their order.
func (e *Engine) processPage(ctx context.Context, sf surface.Surface, page config.PageSpec, res *RunResult, opts Options) pageOutcome {
	log := e.log.With("page", page.Name)
	log.Info("processing page")

	if err := e.navigate(ctx, sf, page); err != nil {
		if shot := e.launcher.EmergencyScreenshot(ctx, page.Name); shot != "" {
			res.addScreenshot(shot)
			res.addWarning(PhasePageProcessing, page.Name, fmt.Sprintf("captured emergency screenshot %s", shot))
		}
		res.addError(PhasePageProcessing, page.Name, fmt.Errorf("navigate: %w", err))
		return pageOutcome{err: err}
	}

	scan := e.scanner.Scan(ctx, sf, page.Name, nil)
	out := pageOutcome{scan: &scan}
	if scan.FailedFallback {
		out.err = fmt.Errorf("scan failed on both paths: %s", scan.Error)
		res.addError(PhasePageScan, page.Name, out.err)
		return out
	}
	log.Info("scan complete",
		"violations", len(scan.Violations),
		"legacy", scan.UsedLegacyFallback)

	if !opts.SkipChecks {
		pc := e.registry.RunAll(ctx, sf, page.Name, e.checkOptions())
		out.checks = &pc
	}
	return out
}

// navigate clicks the page's trigger with bounded fixed-delay retries, then
// optionally waits for load state and lets the page settle.
func (e *Engine) navigate(ctx context.Context, sf surface.Surface, page config.PageSpec) error {
	timeout := page.Options.Timeout.Std()
	if timeout <= 0 {
		timeout = e.cfg.Timeout.Std()
	}
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retry := async.RetryConfig{
		MaxAttempts: max(e.cfg.RetryAttempts, 1),
		BaseDelay:   navRetryDelay,
		MaxDelay:    navRetryDelay,
		Factor:      1.0,
	}
	_, err := async.Retry(nctx, retry, func(ctx context.Context) (struct{}, error) {
		if page.Options.CheckVisible {
			if err := sf.WaitVisible(ctx, page.Selector); err != nil {
				return struct{}{}, fmt.Errorf("trigger %q not visible: %w", page.Selector, err)
			}
		}
		if err := sf.Click(ctx, page.Selector); err != nil {
			return struct{}{}, fmt.Errorf("click %q: %w", page.Selector, err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	if page.Options.WaitForNavigation {
		if err := sf.WaitReady(nctx, "body"); err != nil {
			return fmt.Errorf("wait for load: %w", err)
		}
	}
	e.sleep(ctx, navSettleDelay)
	return nil
}

func (e *Engine) checkOptions() check.Options {
	return check.Options{
		ZoomLevels:    e.cfg.ZoomLevels,
		ScreenshotDir: filepath.Join(e.cfg.ReportDir, "screenshots"),
		Timeout:       e.cfg.Timeout.Std(),
	}
}

// generateReports renders every configured format. Formats run through the
// bounded runner and fail independently; a failed format is a warning, not
// an error.
func (e *Engine) generateReports(ctx context.Context, res *RunResult) {
	if len(e.reporters) == 0 {
		return
	}

	tasks := make([]async.Task[string], len(e.reporters))
	for i, r := range e.reporters {
		r := r
		tasks[i] = func(ctx context.Context) (string, error) {
			return r.Generate(ctx, res)
		}
	}

	for i, out := range async.Map(ctx, reportLimit, tasks) {
		name := e.reporters[i].Name()
		if out.Err != nil {
			res.addWarning(PhaseReport, "", fmt.Sprintf("%s report: %v", name, out.Err))
			continue
		}
		e.log.Info("report written", "format", name, "path", out.Value)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
