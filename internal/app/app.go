// Package app manages the hosted application's process and CDP connection:
// stale-process cleanup, launch with a remote-debugging port, attach,
// readiness, and a graceful-then-forced shutdown ladder.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"beacon/internal/async"
	"beacon/internal/config"
	"beacon/internal/logging"
	"beacon/internal/surface"
)

// State tracks where the manager is in the launch/shutdown ladder.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateRunning
	StateClosingGraceful
	StateClosingForced
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateClosingGraceful:
		return "closing-graceful"
	case StateClosingForced:
		return "closing-forced"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrAlreadyRunning = errors.New("application already running")
	ErrNotRunning     = errors.New("application not running")
)

const (
	staleSettleDelay = 500 * time.Millisecond
	attachBaseDelay  = 500 * time.Millisecond
	titlePollEvery   = 250 * time.Millisecond
	gracefulBudget   = 5 * time.Second
)

// Manager owns the hosted application's process handle and the chromedp
// contexts attached to it.
type Manager struct {
	cfg config.RunConfig
	log *slog.Logger

	// sleep is a seam for tests.
	sleep func(ctx context.Context, d time.Duration)

	mu         sync.Mutex
	state      State
	cmd        *exec.Cmd
	allocStop  context.CancelFunc
	targetCtx  context.Context
	targetStop context.CancelFunc
	page       *surface.Page
}

// NewManager returns an idle manager for the configured application.
func NewManager(cfg config.RunConfig) *Manager {
	return &Manager{
		cfg:   cfg,
		log:   logging.New("app"),
		sleep: sleepCtx,
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsRunning reports whether a launched application is currently attached.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateRunning && m.page != nil
}

// Surface returns the attached page, or nil when not running.
func (m *Manager) Surface() *surface.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page
}

// Launch starts the application and attaches to its debugging port. On
// success the manager is Running and the returned page is ready for
// automation (the window reports a non-empty title).
func (m *Manager) Launch(ctx context.Context) (*surface.Page, error) {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	m.state = StateLaunching
	m.mu.Unlock()

	page, err := m.launch(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.clearLocked()
		m.state = StateIdle
		return nil, err
	}
	m.state = StateRunning
	return page, nil
}

func (m *Manager) launch(ctx context.Context) (*surface.Page, error) {
	m.cleanupStale(ctx)

	if _, err := os.Stat(m.cfg.AppPath); err != nil {
		return nil, fmt.Errorf("application executable %q: %w", m.cfg.AppPath, err)
	}

	args := m.launchArgs()
	m.log.Info("launching application", "path", m.cfg.AppPath, "port", m.cfg.DebugPort)
	cmd := exec.Command(m.cfg.AppPath, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch application: %w", err)
	}
	go m.reap(cmd)

	page, err := m.attach(ctx)
	if err != nil {
		m.forceKill(ctx)
		return nil, err
	}

	m.mu.Lock()
	m.cmd = cmd
	m.page = page
	m.mu.Unlock()
	return page, nil
}

// launchArgs assembles the argument list: configured args, the debugging
// port, and debug extras when debug mode is on.
func (m *Manager) launchArgs() []string {
	args := append([]string{}, m.cfg.LaunchArgs...)
	args = append(args, fmt.Sprintf("--remote-debugging-port=%d", m.cfg.DebugPort))
	if m.cfg.Debug {
		args = append(args, m.cfg.DebugArgs...)
	}
	return args
}

// attach connects to the application's debugging port, retrying while the
// process boots, then waits for the window to report a title.
func (m *Manager) attach(ctx context.Context) (*surface.Page, error) {
	url := fmt.Sprintf("http://127.0.0.1:%d", m.cfg.DebugPort)
	retry := async.RetryConfig{
		MaxAttempts: max(m.cfg.RetryAttempts, 1),
		BaseDelay:   attachBaseDelay,
		MaxDelay:    5 * time.Second,
		Factor:      2.0,
		OnRetry: func(attempt int, err error) {
			m.log.Debug("attach retry", "attempt", attempt, "error", err)
		},
	}

	type conn struct {
		target     context.Context
		allocStop  context.CancelFunc
		targetStop context.CancelFunc
	}
	c, err := async.Retry(ctx, retry, func(ctx context.Context) (conn, error) {
		allocCtx, allocStop := chromedp.NewRemoteAllocator(context.Background(), url)
		targetCtx, targetStop := chromedp.NewContext(allocCtx)
		// Establishes the websocket connection and picks a target.
		if err := chromedp.Run(targetCtx); err != nil {
			targetStop()
			allocStop()
			return conn{}, fmt.Errorf("attach to %s: %w", url, err)
		}
		return conn{target: targetCtx, allocStop: allocStop, targetStop: targetStop}, nil
	})
	if err != nil {
		return nil, err
	}

	page := surface.NewPage(c.target)
	err = async.WaitFor(ctx, titlePollEvery, m.cfg.WaitTimeout.Std(), func(ctx context.Context) (bool, error) {
		title, err := page.Title(ctx)
		if err != nil {
			return false, nil // window not ready yet
		}
		return title != "", nil
	})
	if err != nil {
		c.targetStop()
		c.allocStop()
		return nil, fmt.Errorf("window never became ready: %w", err)
	}

	m.mu.Lock()
	m.targetCtx = c.target
	m.targetStop = c.targetStop
	m.allocStop = c.allocStop
	m.mu.Unlock()
	return page, nil
}

// Close tears the application down: a graceful browser close under a
// timeout, escalating to a forced kill by process name. The handle is
// cleared on every path.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosingGraceful
	target := m.targetCtx
	m.mu.Unlock()

	var closeErr error
	if target != nil {
		_, closeErr = async.WithTimeout(ctx, gracefulBudget, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, chromedp.Run(target, browser.Close())
		})
	}
	if closeErr != nil {
		m.log.Warn("graceful close failed, forcing termination", "error", closeErr)
		m.mu.Lock()
		m.state = StateClosingForced
		m.mu.Unlock()
		m.forceKill(ctx)
	}

	m.mu.Lock()
	m.clearLocked()
	m.state = StateIdle
	m.mu.Unlock()
	return nil
}

// clearLocked drops all handles. Callers hold m.mu.
func (m *Manager) clearLocked() {
	if m.targetStop != nil {
		m.targetStop()
	}
	if m.allocStop != nil {
		m.allocStop()
	}
	m.cmd = nil
	m.page = nil
	m.targetCtx = nil
	m.targetStop = nil
	m.allocStop = nil
}

// reap waits on the launched process so it never lingers as a zombie after
// the window is closed.
func (m *Manager) reap(cmd *exec.Cmd) {
	if err := cmd.Wait(); err != nil {
		m.log.Debug("application process exited", "error", err)
	}
}

// cleanupStale kills stale instances by process name before launch. A
// missing process is not an error.
func (m *Manager) cleanupStale(ctx context.Context) {
	if m.cfg.ProcessName == "" {
		return
	}
	if err := exec.CommandContext(ctx, "pkill", "-f", m.cfg.ProcessName).Run(); err == nil {
		m.log.Debug("killed stale process", "name", m.cfg.ProcessName)
	}
	m.sleep(ctx, staleSettleDelay)
}

// forceKill terminates the application by process name.
func (m *Manager) forceKill(ctx context.Context) {
	if m.cfg.ProcessName == "" {
		return
	}
	_ = exec.CommandContext(ctx, "pkill", "-9", "-f", m.cfg.ProcessName).Run()
}

// EmergencyScreenshot captures the current window into the report
// directory. It is best-effort: any failure yields an empty path.
func (m *Manager) EmergencyScreenshot(ctx context.Context, label string) string {
	m.mu.Lock()
	page := m.page
	m.mu.Unlock()
	if page == nil {
		return ""
	}

	buf, err := page.Screenshot(ctx)
	if err != nil {
		m.log.Warn("emergency screenshot failed", "label", label, "error", err)
		return ""
	}

	dir := filepath.Join(m.cfg.ReportDir, "screenshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	name := fmt.Sprintf("emergency-%s-%d.png", safeName(label), time.Now().Unix())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return ""
	}
	return path
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
