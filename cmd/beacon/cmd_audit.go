package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"beacon/internal/app"
	"beacon/internal/audit"
	"beacon/internal/check"
	"beacon/internal/config"
	"beacon/internal/report"
)

var auditFlags struct {
	configPath      string
	pagesPath       string
	outputDir       string
	formats         string
	appPath         string
	sequential      bool
	concurrency     int
	continueOnError bool
	noReports       bool
	noChecks        bool
	timeout         time.Duration
	debug           bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the full accessibility audit suite",
	Long: `Launch the configured application, navigate every configured page, run
the rule-engine scan plus the extra checkers, and write the requested
report formats.

The exit code is 0 when the run finishes without errors and 1 otherwise.`,
	RunE: runAudit,
}

func init() {
	f := auditCmd.Flags()
	f.StringVarP(&auditFlags.configPath, "config", "c", "", "Path to the run configuration (YAML)")
	f.StringVar(&auditFlags.pagesPath, "pages", "", "Path to a pages file overriding the config's page list")
	f.StringVarP(&auditFlags.outputDir, "output", "o", "", "Report output directory (default from config)")
	f.StringVar(&auditFlags.formats, "formats", "html,json", "Report formats to generate (html, json, json-summary)")
	f.StringVar(&auditFlags.appPath, "app", "", "Application executable (overrides config)")
	f.BoolVar(&auditFlags.sequential, "sequential", false, "Process pages one at a time")
	f.IntVar(&auditFlags.concurrency, "concurrency", 0, "Max concurrent operations (overrides config)")
	f.BoolVar(&auditFlags.continueOnError, "continue-on-error", true, "Keep processing pages after a page-fatal failure")
	f.BoolVar(&auditFlags.noReports, "no-reports", false, "Skip report generation")
	f.BoolVar(&auditFlags.noChecks, "no-checks", false, "Run the rule-engine scan only, skip extra checkers")
	f.DurationVar(&auditFlags.timeout, "timeout", 0, "Per-operation timeout (overrides config)")
	f.BoolVar(&auditFlags.debug, "debug", false, "Enable debug mode (extra launch args, verbose errors)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(auditFlags.configPath, auditFlags.pagesPath, configOverrides{
		appPath:     auditFlags.appPath,
		outputDir:   auditFlags.outputDir,
		timeout:     auditFlags.timeout,
		concurrency: auditFlags.concurrency,
		sequential:  auditFlags.sequential,
		debug:       auditFlags.debug,
	})
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}
	reporters, err := buildReporters(auditFlags.formats, cfg.ReportDir)
	if err != nil {
		return err
	}

	registry := check.NewRegistry(cfg.MaxConcurrency,
		check.NewContrastChecker(scanner),
		check.NewKeyboardChecker(),
		check.NewZoomChecker(),
		check.NewTreeChecker(),
	)

	engine := audit.New(cfg, appLauncher{app.NewManager(cfg)}, scanner, registry, reporters...)

	cmd.SilenceUsage = true
	res, err := engine.Run(cmd.Context(), audit.Options{
		ContinueOnError: auditFlags.continueOnError,
		SkipChecks:      auditFlags.noChecks,
		SkipReports:     auditFlags.noReports,
	})
	if res != nil {
		report.WriteSummary(os.Stdout, res)
	}
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("audit finished with %d error(s)", len(res.Errors))
	}
	return nil
}
