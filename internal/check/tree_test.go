package check

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func namedLandmarks(roles ...string) []Landmark {
	out := make([]Landmark, len(roles))
	for i, r := range roles {
		out[i] = Landmark{Role: r, Name: r + " area"}
	}
	return out
}

func TestAnalyzeLandmarks_AllRequiredScoresFull(t *testing.T) {
	var data TreeData
	issues := analyzeLandmarks(
		namedLandmarks("banner", "navigation", "main", "complementary", "contentinfo"),
		&data,
	)
	if len(issues) != 0 {
		t.Errorf("unexpected issues: %+v", issues)
	}
	// 100 base + 10 bonus, clamped to 100.
	if data.LandmarkScore != 100 {
		t.Errorf("landmark score = %d, want 100", data.LandmarkScore)
	}
}

func TestAnalyzeLandmarks_TwoMissingScoresSixty(t *testing.T) {
	var data TreeData
	issues := analyzeLandmarks(namedLandmarks("banner", "navigation", "main"), &data)

	if len(issues) != 2 {
		t.Fatalf("issues = %+v, want 2 missing-landmark entries", issues)
	}
	for _, issue := range issues {
		if issue.Kind != "missing-landmark" {
			t.Errorf("unexpected issue kind %q", issue.Kind)
		}
	}
	if data.LandmarkScore != 60 {
		t.Errorf("landmark score = %d, want 60", data.LandmarkScore)
	}
}

func TestAnalyzeLandmarks_UnnamedDuplicateFlagged(t *testing.T) {
	var data TreeData
	landmarks := append(
		namedLandmarks("banner", "main", "complementary", "contentinfo"),
		Landmark{Role: "navigation", Name: "primary"},
		Landmark{Role: "navigation"}, // duplicated role with no name
	)
	issues := analyzeLandmarks(landmarks, &data)

	var unnamed int
	for _, issue := range issues {
		if issue.Kind == "unnamed-landmark" {
			unnamed++
		}
	}
	if unnamed != 1 {
		t.Errorf("unnamed-landmark issues = %d, want 1", unnamed)
	}
}

func TestAnalyzeHeadings_LevelSkip(t *testing.T) {
	mk := func(levels ...int) []Heading {
		out := make([]Heading, len(levels))
		for i, l := range levels {
			out[i] = Heading{Level: l, Text: "h"}
		}
		return out
	}

	var data TreeData
	issues := analyzeHeadings(mk(1, 2, 4), &data)
	skips := 0
	for _, issue := range issues {
		if issue.Kind == "heading-skip" {
			skips++
		}
	}
	if skips != 1 {
		t.Errorf("heading levels [1,2,4]: %d skips, want exactly 1", skips)
	}

	var clean TreeData
	issues = analyzeHeadings(mk(1, 2, 3), &clean)
	if len(issues) != 0 {
		t.Errorf("heading levels [1,2,3]: unexpected issues %+v", issues)
	}
	if clean.HeadingScore != 100 {
		t.Errorf("clean outline score = %d, want 100", clean.HeadingScore)
	}
}

func TestAnalyzeHeadings_MissingTopLevel(t *testing.T) {
	var data TreeData
	issues := analyzeHeadings([]Heading{{Level: 2}, {Level: 3}}, &data)

	var missing bool
	for _, issue := range issues {
		if issue.Kind == "missing-h1" {
			missing = true
		}
	}
	if !missing {
		t.Error("expected a missing-h1 issue")
	}
	if data.HeadingScore != 80 {
		t.Errorf("heading score = %d, want 80 (100 - 20)", data.HeadingScore)
	}
}

func TestLangValidation(t *testing.T) {
	cases := []struct {
		lang  string
		valid bool
	}{
		{"en", true},
		{"en-US", true},
		{"pt-BR", true},
		{"zh-Hans-CN", true},
		{"", false},
		{"english", false},
		{"e", false},
		{"en_US", false},
	}
	for _, c := range cases {
		snap := treeSnapshot{
			Lang:      c.lang,
			Landmarks: namedLandmarks("banner", "navigation", "main", "complementary", "contentinfo"),
			Headings:  []Heading{{Level: 1}},
		}
		data := analyzeTree(snap)
		if data.LangValid != c.valid {
			t.Errorf("lang %q: valid = %v, want %v", c.lang, data.LangValid, c.valid)
		}
	}
}

func TestTreeChecker_Run(t *testing.T) {
	snap := treeSnapshot{
		Lang:      "en-US",
		Landmarks: namedLandmarks("banner", "navigation", "main", "complementary", "contentinfo"),
		Headings:  []Heading{{Level: 1, Text: "Dashboard"}, {Level: 2, Text: "Widgets"}},
	}
	sf := &evalSurface{eval: func(expr string, out any) error {
		if !strings.Contains(expr, "landmarks") {
			t.Fatalf("unexpected expression: %s", expr)
		}
		data, _ := json.Marshal(snap)
		return json.Unmarshal(data, out)
	}}

	res := NewTreeChecker().Run(context.Background(), sf, "Dashboard", Options{}.withDefaults())

	if !res.Success {
		t.Errorf("clean page must pass, got %+v", res)
	}
	data := res.Data.(TreeData)
	if data.LandmarkScore != 100 || data.HeadingScore != 100 {
		t.Errorf("scores = %d/%d, want 100/100", data.LandmarkScore, data.HeadingScore)
	}
	if res.Score != 100 {
		t.Errorf("combined score = %d, want 100", res.Score)
	}
}
