package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
app_path: /opt/acme/acme-desktop
process_name: acme-desktop
timeout: 45s
wait_timeout: 2000
max_concurrency: 2
axe:
  run_only: [color-contrast, label]
pages:
  - name: Dashboard
    selector: "#nav-dashboard"
  - name: Settings
    selector: "#nav-settings"
    options:
      timeout: 5s
      wait_for_navigation: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AppPath != "/opt/acme/acme-desktop" {
		t.Errorf("AppPath = %q", cfg.AppPath)
	}
	if got := cfg.Timeout.Std(); got != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", got)
	}
	// Bare integers are milliseconds.
	if got := cfg.WaitTimeout.Std(); got != 2*time.Second {
		t.Errorf("WaitTimeout = %s, want 2s", got)
	}
	// Defaults survive for fields the file does not set.
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want default 3", cfg.RetryAttempts)
	}
	if diff := cmp.Diff([]float64{1.0, 1.25, 1.5, 2.0}, cfg.ZoomLevels); diff != "" {
		t.Errorf("ZoomLevels (-want +got):\n%s", diff)
	}
	if len(cfg.Pages) != 2 || !cfg.Pages[1].Options.WaitForNavigation {
		t.Errorf("pages not parsed: %+v", cfg.Pages)
	}
	if got := cfg.Pages[1].Options.Timeout.Std(); got != 5*time.Second {
		t.Errorf("page timeout = %s, want 5s", got)
	}
}

func TestLoadPages_BareListAndKeyed(t *testing.T) {
	bare := writeFile(t, "pages.yaml", `
- name: Home
  selector: "#home"
- name: About
  selector: "#about"
`)
	pages, err := LoadPages(bare)
	if err != nil {
		t.Fatalf("LoadPages bare: %v", err)
	}
	if len(pages) != 2 || pages[0].Name != "Home" {
		t.Errorf("bare list parsed wrong: %+v", pages)
	}

	keyed := writeFile(t, "keyed.yaml", `
pages:
  - name: Home
    selector: "#home"
`)
	pages, err = LoadPages(keyed)
	if err != nil {
		t.Fatalf("LoadPages keyed: %v", err)
	}
	if len(pages) != 1 || pages[0].Selector != "#home" {
		t.Errorf("keyed list parsed wrong: %+v", pages)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.AppPath = "/opt/app"
	valid.Pages = []PageSpec{{Name: "Home", Selector: "#home"}}

	cases := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr bool
	}{
		{"valid", func(c *RunConfig) {}, false},
		{"missing app path", func(c *RunConfig) { c.AppPath = "" }, true},
		{"empty pages", func(c *RunConfig) { c.Pages = nil }, true},
		{"unnamed page", func(c *RunConfig) { c.Pages = []PageSpec{{Selector: "#x"}} }, true},
		{"missing selector", func(c *RunConfig) { c.Pages = []PageSpec{{Name: "X"}} }, true},
		{"duplicate names", func(c *RunConfig) {
			c.Pages = []PageSpec{{Name: "X", Selector: "#a"}, {Name: "X", Selector: "#b"}}
		}, true},
		{"zero concurrency", func(c *RunConfig) { c.MaxConcurrency = 0 }, true},
		{"negative zoom", func(c *RunConfig) { c.ZoomLevels = []float64{-1} }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := Validate(cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
