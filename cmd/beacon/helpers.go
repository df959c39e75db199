package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"beacon/internal/app"
	"beacon/internal/audit"
	"beacon/internal/axe"
	"beacon/internal/config"
	"beacon/internal/report"
	"beacon/internal/surface"
)

// configOverrides are the flag values that win over the config file.
type configOverrides struct {
	appPath     string
	outputDir   string
	timeout     time.Duration
	concurrency int
	sequential  bool
	debug       bool
}

// loadRunConfig assembles the effective configuration: defaults, config
// file, optional pages file, then flag overrides.
func loadRunConfig(configPath, pagesPath string, ov configOverrides) (config.RunConfig, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if pagesPath != "" {
		pages, err := config.LoadPages(pagesPath)
		if err != nil {
			return cfg, err
		}
		cfg.Pages = pages
	}

	if ov.appPath != "" {
		cfg.AppPath = ov.appPath
	}
	if ov.outputDir != "" {
		cfg.ReportDir = ov.outputDir
	}
	if ov.timeout > 0 {
		cfg.Timeout = config.Duration(ov.timeout)
	}
	if ov.concurrency > 0 {
		cfg.MaxConcurrency = ov.concurrency
	}
	if ov.sequential {
		cfg.MaxConcurrency = 1
	}
	if ov.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// newScanner builds the rule-engine scanner, loading the axe bundle from
// disk when the config names one.
func newScanner(cfg config.RunConfig) (*axe.Scanner, error) {
	opts := axe.Options{
		RunOnly: cfg.Axe.RunOnly,
		Rules:   cfg.Axe.Rules,
		Timeout: cfg.Timeout.Std(),
	}
	if cfg.Axe.SourcePath != "" {
		buf, err := os.ReadFile(cfg.Axe.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("read rule-engine bundle: %w", err)
		}
		opts.Source = string(buf)
	}
	return axe.NewScanner(opts), nil
}

// buildReporters maps the --formats list onto reporter implementations.
func buildReporters(formats string, dir string) ([]audit.Reporter, error) {
	var out []audit.Reporter
	for _, f := range strings.Split(formats, ",") {
		switch strings.TrimSpace(f) {
		case "html":
			out = append(out, report.NewHTMLReporter(dir))
		case "json":
			out = append(out, report.NewJSONReporter(dir, false))
		case "json-summary":
			out = append(out, report.NewJSONReporter(dir, true))
		case "":
		default:
			return nil, fmt.Errorf("unknown report format %q (html, json, json-summary)", f)
		}
	}
	return out, nil
}

// appLauncher adapts the lifecycle manager to the engine's Launcher
// interface.
type appLauncher struct {
	*app.Manager
}

func (l appLauncher) Launch(ctx context.Context) (surface.Surface, error) {
	return l.Manager.Launch(ctx)
}
