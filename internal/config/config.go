// Package config holds the immutable-per-run audit configuration: what
// application to launch, which pages to visit, and how aggressively to
// retry, time out, and parallelize. A RunConfig is constructed once at
// process start and passed by value into the engine; updates produce a new
// value rather than mutating shared state.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings ("30s",
// "500ms") or bare integers interpreted as milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ms int64
	if err := node.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AxeOptions tunes the accessibility rule engine.
type AxeOptions struct {
	// SourcePath points at the rule-engine bundle injected into each page.
	// Empty means the hosted application is expected to ship its own copy.
	SourcePath string `yaml:"source_path"`
	// RunOnly restricts a scan to the named rules; empty = full rule set.
	RunOnly []string `yaml:"run_only"`
	// Rules enables or disables individual rules by id.
	Rules map[string]bool `yaml:"rules"`
}

// PageOptions are per-page navigation knobs.
type PageOptions struct {
	Timeout           Duration `yaml:"timeout"`             // overrides RunConfig.Timeout for this page
	WaitForNavigation bool     `yaml:"wait_for_navigation"` // wait for a load-state signal after the click
	CheckVisible      bool     `yaml:"check_visible"`       // wait for the trigger to be visible before clicking
}

// PageSpec names one screen of the hosted application and how to reach it.
type PageSpec struct {
	Name     string      `yaml:"name"`     // report key; non-empty, unique within a run
	Selector string      `yaml:"selector"` // locates the navigation trigger
	Options  PageOptions `yaml:"options"`
}

// RunConfig is the full per-run configuration.
type RunConfig struct {
	AppPath     string   `yaml:"app_path"`     // executable of the hosted application
	ProcessName string   `yaml:"process_name"` // used for stale-process cleanup and forced kill
	LaunchArgs  []string `yaml:"launch_args"`
	DebugArgs   []string `yaml:"debug_args"` // extra args applied when Debug is set
	DebugPort   int      `yaml:"debug_port"` // CDP remote-debugging port

	ReportDir string `yaml:"report_dir"`

	Timeout        Duration `yaml:"timeout"`         // per-operation budget (scan, navigation)
	WaitTimeout    Duration `yaml:"wait_timeout"`    // readiness/poll budget
	MaxConcurrency int      `yaml:"max_concurrency"` // bound for pages and checkers
	RetryAttempts  int      `yaml:"retry_attempts"`
	Debug          bool     `yaml:"debug"`

	ZoomLevels []float64  `yaml:"zoom_levels"`
	Axe        AxeOptions `yaml:"axe"`

	Pages []PageSpec `yaml:"pages"`
}

// Default returns a RunConfig with every tunable set to its default.
func Default() RunConfig {
	return RunConfig{
		ProcessName:    "electron",
		DebugPort:      9222,
		ReportDir:      "reports",
		Timeout:        Duration(30 * time.Second),
		WaitTimeout:    Duration(10 * time.Second),
		MaxConcurrency: 1,
		RetryAttempts:  3,
		ZoomLevels:     []float64{1.0, 1.25, 1.5, 2.0},
	}
}
