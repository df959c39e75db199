package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"beacon/internal/format"
	"beacon/internal/report"
)

var issuesFlags struct {
	reportPath string
	reportDir  string
	outputDir  string
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Extract issue files from the latest JSON report",
	Long: `Read the newest full JSON report (or an explicitly named one) and emit one
Markdown file per discovered issue plus a CSV index. Issue severity comes
from the finding, the category from the checker that produced it.`,
	RunE: runIssues,
}

func init() {
	f := issuesCmd.Flags()
	f.StringVar(&issuesFlags.reportPath, "report", "", "Path to a specific JSON report (default: newest in --report-dir)")
	f.StringVar(&issuesFlags.reportDir, "report-dir", "reports", "Directory holding JSON reports")
	f.StringVarP(&issuesFlags.outputDir, "output", "o", "", "Issue output directory (default: <report-dir>/issues)")
}

func runIssues(cmd *cobra.Command, args []string) error {
	path := issuesFlags.reportPath
	if path == "" {
		latest, err := report.LatestJSONReport(issuesFlags.reportDir)
		if err != nil {
			return err
		}
		path = latest
	}

	issues, err := report.ExtractIssues(path)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Printf("no issues found in %s\n", path)
		return nil
	}

	outDir := issuesFlags.outputDir
	if outDir == "" {
		outDir = filepath.Join(issuesFlags.reportDir, "issues")
	}
	if err := report.WriteIssueFiles(issues, outDir); err != nil {
		return err
	}

	byCategory := make(map[string]int)
	for _, issue := range issues {
		byCategory[issue.Category]++
	}
	tb := format.NewTable(format.ASCII)
	tb.Header("Category", "Issues")
	for _, cat := range []string{"contrast", "keyboard", "zoom", "structure", "lang"} {
		if n := byCategory[cat]; n > 0 {
			tb.Row(cat, n)
		}
	}
	tb.Footer("TOTAL", len(issues))
	fmt.Println(tb.String())

	fmt.Printf("wrote %d issue files to %s\n", len(issues), outDir)
	return nil
}
