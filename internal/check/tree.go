package check

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"beacon/internal/surface"
)

// requiredLandmarks is the fixed set every screen is expected to expose.
var requiredLandmarks = []string{"banner", "navigation", "main", "complementary", "contentinfo"}

// landmarkRoles is the set of roles treated as landmarks by the probe and
// the analysis.
var landmarkRoles = map[string]bool{
	"banner": true, "navigation": true, "main": true, "complementary": true,
	"contentinfo": true, "search": true, "form": true, "region": true,
}

// treeProbe reads the page language declaration, landmark roles (explicit
// and implicit), and the heading outline from the structural snapshot.
const treeProbe = `(() => {
	const implicit = { header: 'banner', nav: 'navigation', main: 'main',
		aside: 'complementary', footer: 'contentinfo', form: 'form', section: 'region' };
	const accName = el => (el.getAttribute('aria-label') ||
		el.getAttribute('aria-labelledby') ||
		el.getAttribute('title') || '').trim();

	const landmarks = [];
	document.querySelectorAll('[role], header, nav, main, aside, footer, form, section')
		.forEach(el => {
			const role = el.getAttribute('role') || implicit[el.tagName.toLowerCase()];
			if (!role) return;
			landmarks.push({ role: role, name: accName(el) });
		});

	const headings = Array.from(
		document.querySelectorAll('h1, h2, h3, h4, h5, h6, [role="heading"]')
	).map(h => {
		const aria = h.getAttribute('aria-level');
		const level = aria ? parseInt(aria, 10) : parseInt(h.tagName.slice(1), 10);
		return { level: level || 2, text: (h.textContent || '').trim().slice(0, 80) };
	});

	return {
		lang: document.documentElement.getAttribute('lang') || '',
		landmarks: landmarks,
		headings: headings
	};
})()`

// treeSnapshot mirrors the probe output.
type treeSnapshot struct {
	Lang      string     `json:"lang"`
	Landmarks []Landmark `json:"landmarks"`
	Headings  []Heading  `json:"headings"`
}

// Landmark is one structural role exposed by the page.
type Landmark struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// Heading is one entry of the heading outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// TreeIssue is one structural finding.
type TreeIssue struct {
	Kind     string `json:"kind"` // missing-landmark, unnamed-landmark, heading-skip, missing-h1, bad-lang
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// TreeData is the accessibility-tree checker payload.
type TreeData struct {
	Lang          string      `json:"lang"`
	LangValid     bool        `json:"lang_valid"`
	Landmarks     []Landmark  `json:"landmarks"`
	Headings      []Heading   `json:"headings"`
	Issues        []TreeIssue `json:"issues"`
	LandmarkScore int         `json:"landmark_score"`
	HeadingScore  int         `json:"heading_score"`
}

// TreeChecker validates the page language declaration, landmark coverage,
// and heading order.
type TreeChecker struct {
	enabled bool
}

// NewTreeChecker returns the checker in its enabled state.
func NewTreeChecker() *TreeChecker { return &TreeChecker{enabled: true} }

func (c *TreeChecker) Name() string  { return "accessibility-tree" }
func (c *TreeChecker) Priority() int { return 40 }
func (c *TreeChecker) Enabled() bool { return c.enabled }
func (c *TreeChecker) Disable()      { c.enabled = false }

func (c *TreeChecker) Run(ctx context.Context, sf surface.Surface, pageName string, opts Options) Result {
	var snap treeSnapshot
	if err := sf.Evaluate(ctx, treeProbe, &snap); err != nil {
		return errorResult(c.Name(), pageName, fmt.Errorf("tree probe: %w", err))
	}

	data := analyzeTree(snap)

	// The combined score is the mean of the two sub-scores, with a language
	// problem costing a flat penalty.
	score := (data.LandmarkScore + data.HeadingScore) / 2
	if !data.LangValid {
		score -= 20
	}

	return Result{
		CheckerName: c.Name(),
		PageName:    pageName,
		Timestamp:   time.Now(),
		Success:     len(data.Issues) == 0,
		Score:       clampScore(score),
		Data:        data,
	}
}

// langPattern accepts well-formed locale tags: a 2-3 letter primary
// subtag optionally followed by dash-separated alphanumeric subtags.
var langPattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*$`)

func analyzeTree(snap treeSnapshot) TreeData {
	data := TreeData{
		Lang:      snap.Lang,
		Landmarks: snap.Landmarks,
		Headings:  snap.Headings,
	}

	data.LangValid = langPattern.MatchString(snap.Lang)
	if !data.LangValid {
		detail := fmt.Sprintf("page language declaration %q is missing or malformed", snap.Lang)
		data.Issues = append(data.Issues, TreeIssue{Kind: "bad-lang", Severity: SeverityHigh, Detail: detail})
	}

	landmarkIssues := analyzeLandmarks(snap.Landmarks, &data)
	headingIssues := analyzeHeadings(snap.Headings, &data)
	data.Issues = append(data.Issues, landmarkIssues...)
	data.Issues = append(data.Issues, headingIssues...)

	return data
}

// analyzeLandmarks scores landmark coverage: a 100 base with a +10 bonus
// when three or more landmarks are present (clamped to 100 before
// penalties), then -20 per missing required landmark and -10 per landmark
// issue, clamped to 0.
func analyzeLandmarks(landmarks []Landmark, data *TreeData) []TreeIssue {
	var issues []TreeIssue

	present := make(map[string]int)
	for _, l := range landmarks {
		if landmarkRoles[l.Role] {
			present[l.Role]++
		}
	}

	missing := 0
	for _, role := range requiredLandmarks {
		if present[role] == 0 {
			missing++
			issues = append(issues, TreeIssue{
				Kind:     "missing-landmark",
				Severity: SeverityMedium,
				Detail:   fmt.Sprintf("required landmark %q not found", role),
			})
		}
	}

	// A landmark role used more than once needs accessible names to tell
	// the instances apart.
	landmarkIssues := 0
	for _, l := range landmarks {
		if landmarkRoles[l.Role] && present[l.Role] > 1 && l.Name == "" {
			landmarkIssues++
			issues = append(issues, TreeIssue{
				Kind:     "unnamed-landmark",
				Severity: SeverityLow,
				Detail:   fmt.Sprintf("duplicated landmark %q has no accessible name", l.Role),
			})
		}
	}

	score := 100
	if len(landmarks) >= 3 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	score -= 20*missing + 10*landmarkIssues
	data.LandmarkScore = clampScore(score)

	return issues
}

// analyzeHeadings flags level skips (a heading more than one level deeper
// than its predecessor) and a missing top-level heading, scored on the same
// shape as landmarks: 100 base, +10 bonus for an outline that starts at a
// single h1 (clamped to 100), -20 for a missing h1, -10 per order
// violation.
func analyzeHeadings(headings []Heading, data *TreeData) []TreeIssue {
	var issues []TreeIssue

	skips := 0
	prev := 0
	for _, h := range headings {
		if prev > 0 && h.Level > prev+1 {
			skips++
			issues = append(issues, TreeIssue{
				Kind:     "heading-skip",
				Severity: SeverityMedium,
				Detail:   fmt.Sprintf("heading level jumps from h%d to h%d (%q)", prev, h.Level, h.Text),
			})
		}
		prev = h.Level
	}

	topLevel := 0
	for _, h := range headings {
		if h.Level == 1 {
			topLevel++
		}
	}
	missingTop := topLevel == 0
	if missingTop {
		issues = append(issues, TreeIssue{
			Kind:     "missing-h1",
			Severity: SeverityMedium,
			Detail:   "page has no top-level heading",
		})
	}

	score := 100
	if len(headings) > 0 && headings[0].Level == 1 && topLevel == 1 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	if missingTop {
		score -= 20
	}
	score -= 10 * skips
	data.HeadingScore = clampScore(score)

	return issues
}
