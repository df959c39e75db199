package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"beacon/internal/config"
	"beacon/internal/format"
)

var validateFlags struct {
	configPath string
	pagesPath  string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without running a scan",
	Long: `Load the configuration and pages files, run the same validation the audit
command applies, and print the effective page list. Nothing is launched.`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateFlags.configPath, "config", "c", "", "Path to the run configuration (YAML)")
	f.StringVar(&validateFlags.pagesPath, "pages", "", "Path to a pages file overriding the config's page list")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(validateFlags.configPath, validateFlags.pagesPath, configOverrides{})
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := os.Stat(cfg.AppPath); err != nil {
		fmt.Printf("warning: application executable %q not found\n", cfg.AppPath)
	}
	if cfg.Axe.SourcePath != "" {
		if _, err := os.Stat(cfg.Axe.SourcePath); err != nil {
			fmt.Printf("warning: rule-engine bundle %q not found\n", cfg.Axe.SourcePath)
		}
	}

	tb := format.NewTable(format.ASCII)
	tb.Header("Page", "Selector", "Wait", "Visible")
	for _, p := range cfg.Pages {
		tb.Row(p.Name, p.Selector,
			format.BoolMark(p.Options.WaitForNavigation),
			format.BoolMark(p.Options.CheckVisible))
	}
	fmt.Println(tb.String())

	fmt.Printf("configuration valid: %d pages, concurrency %d, reports to %s\n",
		len(cfg.Pages), cfg.MaxConcurrency, cfg.ReportDir)
	return nil
}
