package check

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"beacon/internal/axe"
	"beacon/internal/surface"
)

// ContrastIssue is one element failing the contrast rule.
type ContrastIssue struct {
	Target   []string `json:"target"`
	HTML     string   `json:"html"`
	Summary  string   `json:"summary"`
	Ratio    float64  `json:"ratio,omitempty"` // 0 when unparseable
	Severity string   `json:"severity"`
}

// ContrastData is the contrast checker payload.
type ContrastData struct {
	Issues             []ContrastIssue `json:"issues"`
	UsedLegacyFallback bool            `json:"used_legacy_fallback,omitempty"`
}

// ContrastChecker runs the rule engine restricted to the contrast rule and
// classifies each finding by its parsed contrast ratio.
type ContrastChecker struct {
	scanner *axe.Scanner
	enabled bool
}

// NewContrastChecker wires the checker to a scanner.
func NewContrastChecker(scanner *axe.Scanner) *ContrastChecker {
	return &ContrastChecker{scanner: scanner, enabled: true}
}

func (c *ContrastChecker) Name() string  { return "contrast" }
func (c *ContrastChecker) Priority() int { return 10 }
func (c *ContrastChecker) Enabled() bool { return c.enabled }
func (c *ContrastChecker) Disable()      { c.enabled = false }

func (c *ContrastChecker) Run(ctx context.Context, sf surface.Surface, pageName string, opts Options) Result {
	scan := c.scanner.Scan(ctx, sf, pageName, []string{"color-contrast"})
	if scan.Failed() {
		return errorResult(c.Name(), pageName, fmt.Errorf("contrast scan failed: %s", scan.Error))
	}

	var issues []ContrastIssue
	for _, v := range scan.Violations {
		for _, node := range v.Nodes {
			ratio := parseContrastRatio(node.FailureSummary)
			issues = append(issues, ContrastIssue{
				Target:   node.Target,
				HTML:     node.HTML,
				Summary:  node.FailureSummary,
				Ratio:    ratio,
				Severity: classifyContrast(ratio),
			})
		}
	}

	score := 100
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			score -= 20
		case SeverityHigh:
			score -= 10
		default:
			score -= 5
		}
	}

	return Result{
		CheckerName: c.Name(),
		PageName:    pageName,
		Timestamp:   time.Now(),
		Success:     len(issues) == 0,
		Score:       clampScore(score),
		Data: ContrastData{
			Issues:             issues,
			UsedLegacyFallback: scan.UsedLegacyFallback,
		},
	}
}

var (
	contrastOfPattern = regexp.MustCompile(`contrast of (\d+(?:\.\d+)?)`)
	ratioPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*:1`)
)

// parseContrastRatio extracts a numeric ratio from an engine failure
// summary such as "... has insufficient color contrast of 2.51
// (foreground color: ...)" or "contrast ratio 3.2:1". Returns 0 when no
// ratio is parseable.
func parseContrastRatio(summary string) float64 {
	if m := contrastOfPattern.FindStringSubmatch(summary); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	if m := ratioPattern.FindStringSubmatch(summary); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	return 0
}

// classifyContrast maps a ratio to a severity. Unparseable ratios default
// to medium.
func classifyContrast(ratio float64) string {
	switch {
	case ratio <= 0:
		return SeverityMedium
	case ratio < 3.0:
		return SeverityCritical
	case ratio < 4.5:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
