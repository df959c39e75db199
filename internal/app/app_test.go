package app

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"beacon/internal/config"
)

func TestLaunchArgs(t *testing.T) {
	cfg := config.Default()
	cfg.LaunchArgs = []string{"--no-sandbox"}
	cfg.DebugArgs = []string{"--enable-logging"}
	cfg.DebugPort = 9333

	m := NewManager(cfg)
	want := []string{"--no-sandbox", "--remote-debugging-port=9333"}
	if diff := cmp.Diff(want, m.launchArgs()); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	cfg.Debug = true
	m = NewManager(cfg)
	want = []string{"--no-sandbox", "--remote-debugging-port=9333", "--enable-logging"}
	if diff := cmp.Diff(want, m.launchArgs()); diff != "" {
		t.Errorf("debug args mismatch (-want +got):\n%s", diff)
	}
}

func TestLaunch_MissingExecutable(t *testing.T) {
	cfg := config.Default()
	cfg.AppPath = filepath.Join(t.TempDir(), "does-not-exist")
	cfg.ProcessName = "" // skip stale-process cleanup

	m := NewManager(cfg)
	if _, err := m.Launch(context.Background()); err == nil {
		t.Fatal("expected launch failure for missing executable")
	}
	if got := m.State(); got != StateIdle {
		t.Errorf("state after failed launch = %s, want idle", got)
	}
	if m.IsRunning() {
		t.Error("manager reports running after failed launch")
	}
}

func TestLaunch_RejectsDoublestart(t *testing.T) {
	m := NewManager(config.Default())
	m.mu.Lock()
	m.state = StateRunning
	m.mu.Unlock()

	if _, err := m.Launch(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("err = %v, want ErrAlreadyRunning", err)
	}
}

func TestClose_IdleIsNoop(t *testing.T) {
	m := NewManager(config.Default())
	if err := m.Close(context.Background()); err != nil {
		t.Errorf("closing an idle manager: %v", err)
	}
	if got := m.State(); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
}

func TestEmergencyScreenshot_NoSurface(t *testing.T) {
	m := NewManager(config.Default())
	if path := m.EmergencyScreenshot(context.Background(), "nav failure"); path != "" {
		t.Errorf("path = %q, want empty", path)
	}
}

func TestReapCollectsExitedProcess(t *testing.T) {
	cmd := exec.Command("/bin/true")
	if err := cmd.Start(); err != nil {
		t.Skipf("start /bin/true: %v", err)
	}

	m := NewManager(config.Default())
	m.reap(cmd)

	// An unreaped child has no ProcessState; Wait must have collected it.
	if cmd.ProcessState == nil || !cmd.ProcessState.Exited() {
		t.Errorf("process state = %v, want a collected exit", cmd.ProcessState)
	}
}

func TestStateString(t *testing.T) {
	names := map[State]string{
		StateIdle:            "idle",
		StateLaunching:       "launching",
		StateRunning:         "running",
		StateClosingGraceful: "closing-graceful",
		StateClosingForced:   "closing-forced",
	}
	for s, want := range names {
		if s.String() != want {
			t.Errorf("%d.String() = %s, want %s", int(s), s.String(), want)
		}
	}
}
