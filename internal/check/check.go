// Package check holds the pluggable accessibility checkers and the registry
// that runs them per page. Each checker audits one dimension (contrast,
// keyboard focus, zoom behavior, accessibility-tree structure) and reports
// through a uniform result envelope; a single checker failing never aborts
// its siblings.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"beacon/internal/async"
	"beacon/internal/logging"
	"beacon/internal/surface"
)

// Severity buckets for individual findings.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Result is the uniform envelope every checker invocation produces.
// Success is false whenever Error is set; Error empty with Success=false
// marks a logical failure (the check ran and found problems).
type Result struct {
	CheckerName string    `json:"checker_name"`
	PageName    string    `json:"page_name"`
	Timestamp   time.Time `json:"timestamp"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Score       int       `json:"score"` // 0-100 where applicable
	Screenshots []string  `json:"screenshots,omitempty"`
	Data        any       `json:"data,omitempty"` // checker-specific payload
}

// errorResult builds the envelope for an exceptional failure.
func errorResult(checker, page string, err error) Result {
	return Result{
		CheckerName: checker,
		PageName:    page,
		Timestamp:   time.Now(),
		Success:     false,
		Error:       err.Error(),
	}
}

// Options carries the per-run knobs checkers care about.
type Options struct {
	ZoomLevels     []float64
	MaxZoom        float64
	MaxElements    int    // cap on interactive elements inspected
	MaxScreenshots int    // cap on element screenshots per page
	ScreenshotDir  string // empty disables element screenshots
	Timeout        time.Duration
}

// withDefaults fills zero-value knobs.
func (o Options) withDefaults() Options {
	if len(o.ZoomLevels) == 0 {
		o.ZoomLevels = []float64{1.0, 1.25, 1.5, 2.0}
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = 3.0
	}
	if o.MaxElements <= 0 {
		o.MaxElements = 50
	}
	if o.MaxScreenshots <= 0 {
		o.MaxScreenshots = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Checker is one pluggable audit dimension. Run must convert its own
// internal failures into a Result rather than panicking; the registry still
// guards against panics as a last resort.
type Checker interface {
	Name() string
	// Priority orders execution; lower runs earlier. Ties preserve
	// registration order.
	Priority() int
	Enabled() bool
	Run(ctx context.Context, sf surface.Surface, pageName string, opts Options) Result
}

// Summary classifies per-page checker outcomes. Failed counts logical
// failures (Success=false, no Error); Errors counts exceptional ones
// (Success=false with Error set).
type Summary struct {
	Total       int `json:"total_checks"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	Errors      int `json:"errors"`
	SuccessRate int `json:"success_rate"` // round(passed/total*100)
}

// PageChecks aggregates all checker results for one page.
type PageChecks struct {
	PageName    string            `json:"page_name"`
	Timestamp   time.Time         `json:"timestamp"`
	Checks      map[string]Result `json:"checks"`
	Screenshots []string          `json:"screenshots,omitempty"`
	Summary     Summary           `json:"summary"`
}

// Registry holds the ordered checker set and the concurrency bound applied
// when running them against a page.
type Registry struct {
	checkers []Checker
	limit    int
	log      *slog.Logger
}

// NewRegistry builds a registry with the given concurrency bound. A bound
// of 1 runs checkers strictly sequentially in priority order.
func NewRegistry(limit int, checkers ...Checker) *Registry {
	if limit < 1 {
		limit = 1
	}
	return &Registry{
		checkers: checkers,
		limit:    limit,
		log:      logging.New("check"),
	}
}

// Register appends a checker. Registration order breaks priority ties.
func (r *Registry) Register(c Checker) {
	r.checkers = append(r.checkers, c)
}

// RunAll executes every enabled checker against the current page and
// aggregates the results. Checkers run concurrently against the same page
// when the bound allows it; checkers that mutate global page state must
// restore it, since siblings may read at the same time.
func (r *Registry) RunAll(ctx context.Context, sf surface.Surface, pageName string, opts Options) PageChecks {
	opts = opts.withDefaults()

	enabled := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		if c.Enabled() {
			enabled = append(enabled, c)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority() < enabled[j].Priority()
	})

	var results []Result
	if r.limit > 1 {
		tasks := make([]async.Task[Result], len(enabled))
		for i, c := range enabled {
			tasks[i] = func(ctx context.Context) (Result, error) {
				return r.runSafely(ctx, c, sf, pageName, opts), nil
			}
		}
		for _, out := range async.Map(ctx, r.limit, tasks) {
			results = append(results, out.Value)
		}
	} else {
		for _, c := range enabled {
			results = append(results, r.runSafely(ctx, c, sf, pageName, opts))
		}
	}

	page := PageChecks{
		PageName:  pageName,
		Timestamp: time.Now(),
		Checks:    make(map[string]Result, len(results)),
	}
	for _, res := range results {
		page.Checks[res.CheckerName] = res
		page.Screenshots = append(page.Screenshots, res.Screenshots...)

		page.Summary.Total++
		switch {
		case res.Success:
			page.Summary.Passed++
		case res.Error != "":
			page.Summary.Errors++
		default:
			page.Summary.Failed++
		}
	}
	if page.Summary.Total > 0 {
		page.Summary.SuccessRate = int(math.Round(float64(page.Summary.Passed) / float64(page.Summary.Total) * 100))
	}
	return page
}

// runSafely converts a checker panic into an exceptional Result so one
// checker can never abort the others.
func (r *Registry) runSafely(ctx context.Context, c Checker, sf surface.Surface, pageName string, opts Options) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("checker panicked", "checker", c.Name(), "page", pageName, "panic", rec)
			res = errorResult(c.Name(), pageName, fmt.Errorf("checker panic: %v", rec))
		}
	}()

	res = c.Run(ctx, sf, pageName, opts)
	if res.CheckerName == "" {
		res.CheckerName = c.Name()
	}
	if res.PageName == "" {
		res.PageName = pageName
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now()
	}
	if res.Error != "" && res.Success {
		res.Success = false
	}
	return res
}

// clampScore bounds a score to the 0-100 range.
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
