package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"beacon/internal/audit"
	"beacon/internal/display"
	"beacon/internal/format"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
)

// WriteSummary prints the post-run terminal summary: per-page scan counts,
// per-checker aggregates, diagnostics, and the colored verdict.
func WriteSummary(w io.Writer, res *audit.RunResult) {
	stats := Compute(res)

	fmt.Fprintf(w, "\nAudit %s — %s\n\n", res.ID.String()[:8], format.FmtDuration(res.Duration))

	if len(res.ScanResults) > 0 {
		tb := format.NewTable(format.ASCII)
		tb.Header("Page", "Violations", "Passes", "Scan")
		for _, scan := range res.ScanResults {
			mode := "ok"
			switch {
			case scan.FailedFallback:
				mode = "failed"
			case scan.UsedLegacyFallback:
				mode = "legacy"
			}
			tb.Row(scan.PageName, len(scan.Violations), len(scan.Passes), mode)
		}
		tb.Footer("TOTAL", stats.TotalViolations, stats.TotalPasses, "")
		tb.Columns(
			format.ColumnConfig{Number: 2, Align: format.AlignRight},
			format.ColumnConfig{Number: 3, Align: format.AlignRight},
		)
		fmt.Fprintln(w, tb.String())
	}

	if len(stats.Checkers) > 0 {
		names := make([]string, 0, len(stats.Checkers))
		for name := range stats.Checkers {
			names = append(names, name)
		}
		sort.Strings(names)

		tb := format.NewTable(format.ASCII)
		tb.Header("Checker", "Runs", "Passed", "Success", "Avg Score")
		for _, name := range names {
			cs := stats.Checkers[name]
			tb.Row(display.Checker(name), cs.Runs, cs.Passed,
				format.FmtPercent(cs.SuccessRate), format.FmtScore(cs.AvgScore))
		}
		fmt.Fprintln(w, tb.String())
	}

	for _, e := range res.Errors {
		failColor.Fprintf(w, "error")
		fmt.Fprintf(w, " [%s] %s: %s\n", display.Phase(string(e.Phase)), e.Page, e.Message)
	}
	for _, warn := range res.Warnings {
		warnColor.Fprintf(w, "warning")
		fmt.Fprintf(w, " [%s] %s: %s\n", display.Phase(string(warn.Phase)), warn.Page, warn.Message)
	}

	fmt.Fprint(w, "\nResult: ")
	if res.Success {
		passColor.Fprintln(w, display.Verdict(true))
	} else {
		failColor.Fprintln(w, display.Verdict(false))
	}
}
