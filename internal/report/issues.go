package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"beacon/internal/check"
	"beacon/internal/display"
	"beacon/internal/format"
)

// Issue is one extracted finding, flattened out of the checker payloads.
type Issue struct {
	ID         string `json:"id"`
	Page       string `json:"page"`
	Category   string `json:"category"` // contrast, keyboard, zoom, structure, lang
	Severity   string `json:"severity"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Screenshot string `json:"screenshot,omitempty"`
}

// LatestJSONReport returns the newest full JSON report in dir. Filenames
// embed a sortable timestamp, so lexical order is chronological.
func LatestJSONReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "audit-report-*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no JSON reports in %s", dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ExtractIssues reads a full JSON report and flattens every checker finding
// into an Issue list, sorted most severe first.
func ExtractIssues(reportPath string) ([]Issue, error) {
	buf, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", reportPath, err)
	}
	if doc.Result == nil {
		return nil, errors.New("report has no embedded results (summary-only?)")
	}

	var issues []Issue
	for _, pc := range doc.Result.CheckResults {
		for name, res := range pc.Checks {
			extracted, err := extractFromCheck(name, pc.PageName, res)
			if err != nil {
				return nil, fmt.Errorf("page %s checker %s: %w", pc.PageName, name, err)
			}
			issues = append(issues, extracted...)
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if a, b := display.SeverityRank(issues[i].Severity), display.SeverityRank(issues[j].Severity); a != b {
			return a < b
		}
		return issues[i].Page < issues[j].Page
	})
	for i := range issues {
		issues[i].ID = fmt.Sprintf("A11Y-%03d", i+1)
	}
	return issues, nil
}

func extractFromCheck(checker, page string, res check.Result) ([]Issue, error) {
	if res.Data == nil {
		return nil, nil
	}
	category := display.CheckerCategory(checker)
	switch checker {
	case "contrast":
		data, err := decodeData[check.ContrastData](res.Data)
		if err != nil {
			return nil, err
		}
		return contrastIssues(page, category, data), nil
	case "keyboard-focus":
		data, err := decodeData[check.KeyboardData](res.Data)
		if err != nil {
			return nil, err
		}
		return keyboardIssues(page, category, data), nil
	case "zoom":
		data, err := decodeData[check.ZoomData](res.Data)
		if err != nil {
			return nil, err
		}
		return zoomIssues(page, category, data), nil
	case "accessibility-tree":
		data, err := decodeData[check.TreeData](res.Data)
		if err != nil {
			return nil, err
		}
		return treeIssues(page, category, data), nil
	default:
		return nil, nil
	}
}

// decodeData converts a checker payload to its concrete type. Payloads
// arrive either typed (in-process) or as generic maps (decoded from JSON);
// a marshal round-trip handles both.
func decodeData[T any](data any) (T, error) {
	var out T
	buf, err := json.Marshal(data)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(buf, &out)
	return out, err
}

func contrastIssues(page, category string, data check.ContrastData) []Issue {
	out := make([]Issue, 0, len(data.Issues))
	for _, ci := range data.Issues {
		title := "Insufficient color contrast"
		if ci.Ratio > 0 {
			title = fmt.Sprintf("Insufficient color contrast (%.2f:1)", ci.Ratio)
		}
		out = append(out, Issue{
			Page:     page,
			Category: category,
			Severity: ci.Severity,
			Title:    title,
			Detail:   strings.TrimSpace(ci.Summary + "\n\n" + ci.HTML),
		})
	}
	return out
}

func keyboardIssues(page, category string, data check.KeyboardData) []Issue {
	out := make([]Issue, 0, len(data.Problems))
	for _, p := range data.Problems {
		var title string
		switch p.Kind {
		case check.ProblemNotFocusable:
			title = fmt.Sprintf("Interactive <%s> not keyboard focusable", p.Tag)
		case check.ProblemNoVisibleFocus:
			title = fmt.Sprintf("No visible focus indicator on <%s>", p.Tag)
		case check.ProblemMissingLabel:
			title = fmt.Sprintf("Interactive <%s> has no accessible name", p.Tag)
		default:
			title = fmt.Sprintf("Keyboard problem %s on <%s>", p.Kind, p.Tag)
		}
		detail := p.Text
		if p.Role != "" {
			detail = fmt.Sprintf("role=%s %s", p.Role, detail)
		}
		out = append(out, Issue{
			Page:       page,
			Category:   category,
			Severity:   p.Severity,
			Title:      title,
			Detail:     strings.TrimSpace(detail),
			Screenshot: p.Screenshot,
		})
	}
	return out
}

func zoomIssues(page, category string, data check.ZoomData) []Issue {
	var out []Issue
	for _, lvl := range data.Levels {
		if lvl.OK {
			continue
		}
		severity := check.SeverityHigh
		kind := "content overflows horizontally"
		if lvl.Broken {
			severity = check.SeverityCritical
			kind = "layout breaks"
		}
		out = append(out, Issue{
			Page:     page,
			Category: category,
			Severity: severity,
			Title:    fmt.Sprintf("At %.0f%% zoom %s", lvl.Level*100, kind),
			Detail: fmt.Sprintf("scroll %dx%d vs viewport %dx%d, %d elements off-screen",
				lvl.ScrollWidth, lvl.ScrollHeight, lvl.InnerWidth, lvl.InnerHeight, lvl.Offscreen),
		})
	}
	return out
}

func treeIssues(page, category string, data check.TreeData) []Issue {
	out := make([]Issue, 0, len(data.Issues))
	for _, ti := range data.Issues {
		cat := category
		if ti.Kind == "bad-lang" {
			cat = "lang"
		}
		out = append(out, Issue{
			Page:     page,
			Category: cat,
			Severity: ti.Severity,
			Title:    treeIssueTitle(ti.Kind),
			Detail:   ti.Detail,
		})
	}
	return out
}

func treeIssueTitle(kind string) string {
	switch kind {
	case "missing-landmark":
		return "Required landmark missing"
	case "unnamed-landmark":
		return "Duplicated landmark without accessible name"
	case "heading-skip":
		return "Heading level skipped"
	case "missing-h1":
		return "No top-level heading"
	case "bad-lang":
		return "Page language missing or malformed"
	default:
		return kind
	}
}

// WriteIssueFiles emits one Markdown file per issue plus a CSV index into
// outDir.
func WriteIssueFiles(issues []Issue, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	for _, issue := range issues {
		name := fmt.Sprintf("%s-%s.md", strings.ToLower(issue.ID), issue.Category)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(issueMarkdown(issue)), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	f, err := os.Create(filepath.Join(outDir, "issues.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "page", "category", "severity", "title", "screenshot"}); err != nil {
		return err
	}
	for _, issue := range issues {
		if err := w.Write([]string{issue.ID, issue.Page, issue.Category, issue.Severity, issue.Title, issue.Screenshot}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func issueMarkdown(issue Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", issue.ID, issue.Title)

	tb := format.NewTable(format.Markdown)
	tb.Header("Field", "Value")
	tb.Row("Page", issue.Page)
	tb.Row("Category", issue.Category)
	tb.Row("Severity", display.Severity(issue.Severity))
	if issue.Screenshot != "" {
		tb.Row("Screenshot", issue.Screenshot)
	}
	b.WriteString(tb.String())
	b.WriteString("\n")

	if issue.Detail != "" {
		fmt.Fprintf(&b, "\n%s\n", issue.Detail)
	}
	return b.String()
}
