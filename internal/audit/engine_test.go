package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"beacon/internal/axe"
	"beacon/internal/check"
	"beacon/internal/config"
	"beacon/internal/surface"
)

// fakeSurface routes Click and WaitReady through closures; everything else
// is inert.
type fakeSurface struct {
	click     func(selector string) error
	waitReady func(ctx context.Context) error
}

var _ surface.Surface = (*fakeSurface)(nil)

func (s *fakeSurface) Click(_ context.Context, selector string) error {
	if s.click == nil {
		return nil
	}
	return s.click(selector)
}
func (s *fakeSurface) WaitReady(ctx context.Context, _ string) error {
	if s.waitReady == nil {
		return nil
	}
	return s.waitReady(ctx)
}
func (s *fakeSurface) WaitVisible(context.Context, string) error   { return nil }
func (s *fakeSurface) Evaluate(context.Context, string, any) error { return nil }
func (s *fakeSurface) Title(context.Context) (string, error)       { return "app", nil }
func (s *fakeSurface) Screenshot(context.Context) ([]byte, error)  { return []byte("png"), nil }
func (s *fakeSurface) ElementScreenshot(context.Context, string) ([]byte, error) {
	return []byte("png"), nil
}

type fakeLauncher struct {
	sf        surface.Surface
	launchErr error
	closed    bool
	shots     int
	hold      chan struct{} // when set, Launch blocks until closed
}

func (l *fakeLauncher) Launch(context.Context) (surface.Surface, error) {
	if l.hold != nil {
		<-l.hold
	}
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return l.sf, nil
}

func (l *fakeLauncher) Close(context.Context) error {
	l.closed = true
	return nil
}

func (l *fakeLauncher) EmergencyScreenshot(context.Context, string) string {
	l.shots++
	return fmt.Sprintf("emergency-%d.png", l.shots)
}

// fakeScanner returns a scripted result per page.
type fakeScanner struct {
	results map[string]axe.Result
}

func (s *fakeScanner) Scan(_ context.Context, _ surface.Surface, pageName string, _ []string) axe.Result {
	if r, ok := s.results[pageName]; ok {
		r.PageName = pageName
		return r
	}
	return axe.Result{PageName: pageName, Timestamp: time.Now()}
}

// passChecker always succeeds.
type passChecker struct{}

func (passChecker) Name() string  { return "pass" }
func (passChecker) Priority() int { return 10 }
func (passChecker) Enabled() bool { return true }
func (passChecker) Run(_ context.Context, _ surface.Surface, page string, _ check.Options) check.Result {
	return check.Result{CheckerName: "pass", PageName: page, Success: true, Score: 100}
}

func testConfig(t *testing.T, pages ...config.PageSpec) config.RunConfig {
	t.Helper()
	cfg := config.Default()
	cfg.AppPath = "/usr/bin/true"
	cfg.ReportDir = t.TempDir()
	cfg.RetryAttempts = 1 // keep navigation retries instant in tests
	cfg.Pages = pages
	return cfg
}

func newTestEngine(cfg config.RunConfig, l Launcher, s Scanner, reporters ...Reporter) *Engine {
	e := New(cfg, l, s, check.NewRegistry(1, passChecker{}), reporters...)
	e.sleep = func(context.Context, time.Duration) {}
	return e
}

func TestRun_NavigationFailureContinues(t *testing.T) {
	cfg := testConfig(t,
		config.PageSpec{Name: "Dashboard", Selector: "#dash"},
		config.PageSpec{Name: "Settings", Selector: "#settings"},
	)
	sf := &fakeSurface{click: func(sel string) error {
		if sel == "#settings" {
			return errors.New("element detached")
		}
		return nil
	}}
	launcher := &fakeLauncher{sf: sf}
	engine := newTestEngine(cfg, launcher, &fakeScanner{})

	res, err := engine.Run(context.Background(), Options{ContinueOnError: true, SkipReports: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(res.ScanResults) != 1 || res.ScanResults[0].PageName != "Dashboard" {
		t.Errorf("scan results = %+v, want exactly the Dashboard scan", res.ScanResults)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly 1", res.Errors)
	}
	rec := res.Errors[0]
	if rec.Phase != PhasePageProcessing || rec.Page != "Settings" {
		t.Errorf("error record = %+v, want phase page_processing for Settings", rec)
	}
	if res.Success {
		t.Error("run with errors must not be successful")
	}
	if len(res.CheckResults) != 1 {
		t.Errorf("check results = %d, want 1 (Dashboard only)", len(res.CheckResults))
	}
	if launcher.shots != 1 {
		t.Errorf("emergency screenshots = %d, want 1", launcher.shots)
	}
	if !launcher.closed {
		t.Error("application was not closed")
	}
}

func TestRun_AbortsWithoutContinueOnError(t *testing.T) {
	cfg := testConfig(t,
		config.PageSpec{Name: "A", Selector: "#a"},
		config.PageSpec{Name: "B", Selector: "#b"},
		config.PageSpec{Name: "C", Selector: "#c"},
	)
	sf := &fakeSurface{click: func(sel string) error {
		if sel == "#b" {
			return errors.New("boom")
		}
		return nil
	}}
	engine := newTestEngine(cfg, &fakeLauncher{sf: sf}, &fakeScanner{})

	res, err := engine.Run(context.Background(), Options{SkipReports: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// A processed, B failed, C never started.
	if len(res.ScanResults) != 1 {
		t.Errorf("scan results = %d, want 1", len(res.ScanResults))
	}
}

func TestRun_ScanTotalFailureAbortsPage(t *testing.T) {
	cfg := testConfig(t, config.PageSpec{Name: "Broken", Selector: "#broken"})
	scanner := &fakeScanner{results: map[string]axe.Result{
		"Broken": {FailedFallback: true, Error: "engine never responded"},
	}}
	engine := newTestEngine(cfg, &fakeLauncher{sf: &fakeSurface{}}, scanner)

	res, err := engine.Run(context.Background(), Options{ContinueOnError: true, SkipReports: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// The empty scan result is still appended, the failure is recorded, and
	// extra checks are skipped for the page.
	if len(res.ScanResults) != 1 {
		t.Fatalf("scan results = %d, want 1", len(res.ScanResults))
	}
	if len(res.Errors) != 1 || res.Errors[0].Phase != PhasePageScan {
		t.Errorf("errors = %+v, want one page_scan record", res.Errors)
	}
	if len(res.CheckResults) != 0 {
		t.Errorf("check results = %d, want 0", len(res.CheckResults))
	}
}

func TestRun_LaunchFailureIsFatal(t *testing.T) {
	cfg := testConfig(t, config.PageSpec{Name: "A", Selector: "#a"})
	engine := newTestEngine(cfg, &fakeLauncher{launchErr: errors.New("no such file")}, &fakeScanner{})

	res, err := engine.Run(context.Background(), Options{ContinueOnError: true})
	if err == nil {
		t.Fatal("expected a setup error")
	}
	if res == nil || len(res.Errors) != 1 || res.Errors[0].Phase != PhaseSetup {
		t.Errorf("result = %+v, want one setup error record", res)
	}
}

func TestRun_SingleFlight(t *testing.T) {
	cfg := testConfig(t, config.PageSpec{Name: "A", Selector: "#a"})
	hold := make(chan struct{})
	engine := newTestEngine(cfg, &fakeLauncher{sf: &fakeSurface{}, hold: hold}, &fakeScanner{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = engine.Run(context.Background(), Options{SkipReports: true})
	}()

	// Wait until the first run holds the guard.
	deadline := time.After(2 * time.Second)
	for !engine.active.Load() {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := engine.Run(context.Background(), Options{}); err != ErrRunActive {
		t.Errorf("second run err = %v, want ErrRunActive", err)
	}

	close(hold)
	<-done
}

type stubReporter struct {
	name string
	err  error
}

func (r stubReporter) Name() string { return r.name }
func (r stubReporter) Generate(context.Context, *RunResult) (string, error) {
	return "out/" + r.name, r.err
}

func TestRun_ReportFailureIsWarning(t *testing.T) {
	cfg := testConfig(t, config.PageSpec{Name: "A", Selector: "#a"})
	engine := newTestEngine(cfg, &fakeLauncher{sf: &fakeSurface{}}, &fakeScanner{},
		stubReporter{name: "json"},
		stubReporter{name: "html", err: errors.New("template broke")},
	)

	res, err := engine.Run(context.Background(), Options{ContinueOnError: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Error("report failures must not fail the run")
	}
	found := false
	for _, w := range res.Warnings {
		if w.Phase == PhaseReport {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %+v, want a report-phase entry", res.Warnings)
	}
}

func TestRun_ConcurrentPagesIndexStable(t *testing.T) {
	cfg := testConfig(t,
		config.PageSpec{Name: "A", Selector: "#a"},
		config.PageSpec{Name: "B", Selector: "#b"},
		config.PageSpec{Name: "C", Selector: "#c"},
	)
	cfg.MaxConcurrency = 3
	// Staggered clicks make the pages finish in reverse order.
	delays := map[string]time.Duration{"#a": 120 * time.Millisecond, "#b": 60 * time.Millisecond, "#c": 0}
	sf := &fakeSurface{click: func(sel string) error {
		time.Sleep(delays[sel])
		return nil
	}}
	engine := newTestEngine(cfg, &fakeLauncher{sf: sf}, &fakeScanner{})

	res, err := engine.Run(context.Background(), Options{ContinueOnError: true, SkipReports: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Errorf("errors = %+v", res.Errors)
	}

	var scanned, checked []string
	for _, s := range res.ScanResults {
		scanned = append(scanned, s.PageName)
	}
	for _, c := range res.CheckResults {
		checked = append(checked, c.PageName)
	}
	want := []string{"A", "B", "C"}
	if diff := cmp.Diff(want, scanned); diff != "" {
		t.Errorf("scan result order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, checked); diff != "" {
		t.Errorf("check result order (-want +got):\n%s", diff)
	}
}

func TestNavigate_PageTimeoutBoundsLoadWait(t *testing.T) {
	page := config.PageSpec{
		Name:     "Slow",
		Selector: "#slow",
		Options: config.PageOptions{
			WaitForNavigation: true,
			Timeout:           config.Duration(50 * time.Millisecond),
		},
	}
	cfg := testConfig(t, page)
	sf := &fakeSurface{waitReady: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	engine := newTestEngine(cfg, &fakeLauncher{sf: sf}, &fakeScanner{})

	start := time.Now()
	res, err := engine.Run(context.Background(), Options{ContinueOnError: true, SkipReports: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("run took %v, load wait was not bounded by the page timeout", elapsed)
	}
	if res.Success {
		t.Error("a page that never reaches load state must fail the run")
	}
	if len(res.Errors) != 1 || res.Errors[0].Phase != PhasePageProcessing {
		t.Errorf("errors = %+v, want one page_processing record for Slow", res.Errors)
	}
}
