// Package audit orchestrates a full accessibility run: application launch,
// the per-page navigation and checking loop, result aggregation, report
// generation, and teardown.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"beacon/internal/axe"
	"beacon/internal/check"
	"beacon/internal/surface"
)

// Phase tags where in the run an error or warning happened.
type Phase string

const (
	PhaseSetup          Phase = "setup"
	PhasePageScan       Phase = "page_scan"
	PhasePageProcessing Phase = "page_processing"
	PhaseReport         Phase = "report"
	PhaseCleanup        Phase = "cleanup"
)

// ErrorRecord is one failure logged into the run aggregate.
type ErrorRecord struct {
	Phase   Phase     `json:"phase"`
	Page    string    `json:"page,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// WarningRecord is one non-fatal problem logged into the run aggregate.
type WarningRecord struct {
	Phase   Phase     `json:"phase"`
	Page    string    `json:"page,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// RunResult is the aggregate a suite run produces. Success means the errors
// list is empty; warnings never fail a run.
type RunResult struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	ScanResults  []axe.Result       `json:"scan_results"`
	CheckResults []check.PageChecks `json:"check_results"`
	Screenshots  []string           `json:"screenshots,omitempty"`

	Errors   []ErrorRecord   `json:"errors"`
	Warnings []WarningRecord `json:"warnings"`

	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`

	mu sync.Mutex
}

func (r *RunResult) addError(phase Phase, page string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, ErrorRecord{Phase: phase, Page: page, Message: err.Error(), Time: time.Now()})
}

func (r *RunResult) addWarning(phase Phase, page, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, WarningRecord{Phase: phase, Page: page, Message: msg, Time: time.Now()})
}

func (r *RunResult) addScan(res axe.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ScanResults = append(r.ScanResults, res)
}

func (r *RunResult) addChecks(pc check.PageChecks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CheckResults = append(r.CheckResults, pc)
	r.Screenshots = append(r.Screenshots, pc.Screenshots...)
}

// commit appends a finished page's results. Callers invoke it in page input
// order so ScanResults and CheckResults stay index-stable under concurrency.
func (r *RunResult) commit(out pageOutcome) {
	if out.scan != nil {
		r.addScan(*out.scan)
	}
	if out.checks != nil {
		r.addChecks(*out.checks)
	}
}

func (r *RunResult) addScreenshot(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Screenshots = append(r.Screenshots, path)
}

// Launcher is the application lifecycle dependency of the engine.
type Launcher interface {
	Launch(ctx context.Context) (surface.Surface, error)
	Close(ctx context.Context) error
	// EmergencyScreenshot is best-effort; it returns "" on any failure.
	EmergencyScreenshot(ctx context.Context, label string) string
}

// Scanner runs the rule engine against the current page. Implementations
// never return an error; total failure is encoded in the result.
type Scanner interface {
	Scan(ctx context.Context, sf surface.Surface, pageName string, runOnly []string) axe.Result
}

// Reporter renders one output format from a finished run.
type Reporter interface {
	Name() string
	Generate(ctx context.Context, res *RunResult) (string, error)
}
