package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"beacon/internal/audit"
	"beacon/internal/display"
	"beacon/internal/format"
	"beacon/internal/logging"
)

// HTMLReporter writes the human-readable report file.
type HTMLReporter struct {
	dir string
	log *slog.Logger
}

func NewHTMLReporter(dir string) *HTMLReporter {
	return &HTMLReporter{dir: dir, log: logging.New("report")}
}

func (r *HTMLReporter) Name() string { return "html" }

func (r *HTMLReporter) Generate(ctx context.Context, res *audit.RunResult) (string, error) {
	doc := buildDocument(res, false)

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, fmt.Sprintf("audit-report-%s.html", doc.GeneratedAt.Format(fileTimestamp)))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"impact":      display.Impact,
	"impactOrder": impactOrder,
	"checker":     display.CheckerWithCode,
	"phase":       func(p audit.Phase) string { return display.Phase(string(p)) },
	"verdict":     display.Verdict,
	"duration":    format.FmtDuration,
}).Parse(reportHTML))

// impactOrder returns the map's impact levels most severe first, so template
// ranges do not fall back to the map's alphabetical key order.
func impactOrder(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return display.ImpactRank(keys[i]) < display.ImpactRank(keys[j])
	})
	return keys
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Accessibility Audit {{.RunID}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 64rem; color: #1a1a1a; }
h1, h2, h3 { line-height: 1.2; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; vertical-align: top; }
th { background: #f0f0f0; }
.pass { color: #1a7f37; font-weight: bold; }
.fail { color: #cf222e; font-weight: bold; }
.impact-critical { color: #cf222e; }
.impact-serious { color: #bc4c00; }
.impact-moderate { color: #9a6700; }
.impact-minor { color: #57606a; }
code { background: #f6f8fa; padding: 0.1rem 0.3rem; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Accessibility Audit</h1>
<p>
Run <code>{{.RunID}}</code> generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} —
<span class="{{if .Success}}pass{{else}}fail{{end}}">{{verdict .Success}}</span>
{{with .Result}}({{duration .Duration}}){{end}}
</p>

<h2>Summary</h2>
<table>
<tr><th>Pages scanned</th><td>{{.Stats.TotalPages}}</td></tr>
<tr><th>Total violations</th><td>{{.Stats.TotalViolations}}</td></tr>
<tr><th>Pages with violations</th><td>{{.Stats.PagesWithViolations}}</td></tr>
<tr><th>Avg violations / page</th><td>{{.Stats.AvgViolationsPerPage}}</td></tr>
<tr><th>Avg passes / page</th><td>{{.Stats.AvgPassesPerPage}}</td></tr>
</table>

{{if .Stats.ViolationsByImpact}}
<h3>Violations by impact</h3>
<table>
<tr><th>Impact</th><th>Count</th></tr>
{{$byImpact := .Stats.ViolationsByImpact}}
{{range $impact := impactOrder $byImpact}}
<tr><td class="impact-{{$impact}}">{{impact $impact}}</td><td>{{index $byImpact $impact}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Stats.ViolationsByRule}}
<h3>Violations by rule</h3>
<table>
<tr><th>Rule</th><th>Count</th></tr>
{{range $rule, $count := .Stats.ViolationsByRule}}
<tr><td><code>{{$rule}}</code></td><td>{{$count}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Stats.Checkers}}
<h2>Checkers</h2>
<table>
<tr><th>Checker</th><th>Runs</th><th>Passed</th><th>Success rate</th><th>Avg score</th></tr>
{{range $name, $cs := .Stats.Checkers}}
<tr><td>{{checker $name}}</td><td>{{$cs.Runs}}</td><td>{{$cs.Passed}}</td><td>{{$cs.SuccessRate}}%</td><td>{{$cs.AvgScore}}</td></tr>
{{end}}
</table>
{{end}}

{{with .Result}}
<h2>Pages</h2>
{{range .ScanResults}}
<h3>{{.PageName}}</h3>
{{if .FailedFallback}}
<p class="fail">Scan failed: {{.Error}}</p>
{{else}}
<p>{{len .Violations}} violations, {{len .Passes}} passes{{if .UsedLegacyFallback}} (legacy scan){{end}}</p>
{{if .Violations}}
<table>
<tr><th>Rule</th><th>Impact</th><th>Description</th><th>Elements</th></tr>
{{range .Violations}}
<tr>
<td><code>{{.ID}}</code></td>
<td class="impact-{{.Impact}}">{{impact .Impact}}</td>
<td>{{.Description}}</td>
<td>{{len .Nodes}}</td>
</tr>
{{end}}
</table>
{{end}}
{{end}}
{{end}}

{{if .Errors}}
<h2>Errors</h2>
<table>
<tr><th>Phase</th><th>Page</th><th>Message</th></tr>
{{range .Errors}}
<tr><td>{{phase .Phase}}</td><td>{{.Page}}</td><td>{{.Message}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Warnings}}
<h2>Warnings</h2>
<table>
<tr><th>Phase</th><th>Page</th><th>Message</th></tr>
{{range .Warnings}}
<tr><td>{{phase .Phase}}</td><td>{{.Page}}</td><td>{{.Message}}</td></tr>
{{end}}
</table>
{{end}}
{{end}}
</body>
</html>
`
