// Package report turns a finished run into its persisted outputs: summary
// statistics, JSON and HTML report files, extracted issue files, and the
// terminal summary.
package report

import (
	"math"

	"beacon/internal/audit"
)

// CheckerStats aggregates one checker's outcomes across all pages.
type CheckerStats struct {
	Runs        int `json:"runs"`
	Passed      int `json:"passed"`
	SuccessRate int `json:"success_rate"` // round(passed/runs*100)
	AvgScore    int `json:"avg_score"`
}

// Stats are the cross-cutting numbers computed from a run.
type Stats struct {
	TotalPages           int     `json:"total_pages"`
	TotalViolations      int     `json:"total_violations"`
	TotalPasses          int     `json:"total_passes"`
	PagesWithViolations  int     `json:"pages_with_violations"`
	AvgViolationsPerPage float64 `json:"avg_violations_per_page"`
	AvgPassesPerPage     float64 `json:"avg_passes_per_page"`

	ViolationsByImpact map[string]int `json:"violations_by_impact"`
	ViolationsByRule   map[string]int `json:"violations_by_rule"`

	Checkers map[string]CheckerStats `json:"checkers"`
}

// Compute derives summary statistics from a finished run.
func Compute(res *audit.RunResult) Stats {
	s := Stats{
		TotalPages:         len(res.ScanResults),
		ViolationsByImpact: make(map[string]int),
		ViolationsByRule:   make(map[string]int),
		Checkers:           make(map[string]CheckerStats),
	}

	for _, scan := range res.ScanResults {
		s.TotalViolations += len(scan.Violations)
		s.TotalPasses += len(scan.Passes)
		if len(scan.Violations) > 0 {
			s.PagesWithViolations++
		}
		for _, v := range scan.Violations {
			s.ViolationsByImpact[v.Impact]++
			s.ViolationsByRule[v.ID]++
		}
	}
	if s.TotalPages > 0 {
		s.AvgViolationsPerPage = round2(float64(s.TotalViolations) / float64(s.TotalPages))
		s.AvgPassesPerPage = round2(float64(s.TotalPasses) / float64(s.TotalPages))
	}

	type acc struct {
		runs, passed, scoreSum int
	}
	byChecker := make(map[string]*acc)
	for _, pc := range res.CheckResults {
		for name, r := range pc.Checks {
			a := byChecker[name]
			if a == nil {
				a = &acc{}
				byChecker[name] = a
			}
			a.runs++
			if r.Success {
				a.passed++
			}
			a.scoreSum += r.Score
		}
	}
	for name, a := range byChecker {
		s.Checkers[name] = CheckerStats{
			Runs:        a.runs,
			Passed:      a.passed,
			SuccessRate: int(math.Round(float64(a.passed) / float64(a.runs) * 100)),
			AvgScore:    int(math.Round(float64(a.scoreSum) / float64(a.runs))),
		}
	}

	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
