// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports, logs, and docs.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import "strings"

// --- Rule impact levels ---

var impacts = map[string]string{
	"critical": "Critical",
	"serious":  "Serious",
	"moderate": "Moderate",
	"minor":    "Minor",
}

// impactRank orders impact levels from most to least severe.
var impactRank = map[string]int{
	"critical": 0,
	"serious":  1,
	"moderate": 2,
	"minor":    3,
}

// Impact returns the human-readable name for a rule-engine impact level.
// Unknown codes are returned as-is.
func Impact(code string) string {
	if name, ok := impacts[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// ImpactRank returns the sort rank of an impact level, most severe first.
// Unknown levels sort last.
func ImpactRank(code string) int {
	if r, ok := impactRank[strings.ToLower(code)]; ok {
		return r
	}
	return len(impactRank)
}

// --- Finding severities (bespoke checkers) ---

var severities = map[string]string{
	"critical": "Critical",
	"high":     "High",
	"medium":   "Medium",
	"low":      "Low",
}

var severityRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

// Severity returns the human-readable name for a checker finding severity.
func Severity(code string) string {
	if name, ok := severities[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// SeverityRank returns the sort rank of a severity, most severe first.
func SeverityRank(code string) int {
	if r, ok := severityRank[strings.ToLower(code)]; ok {
		return r
	}
	return len(severityRank)
}

// --- Checkers ---

var checkers = map[string]string{
	"contrast":           "Color Contrast",
	"keyboard-focus":     "Keyboard Focus",
	"zoom":               "Zoom & Responsive Layout",
	"accessibility-tree": "Landmarks & Headings",
}

// Checker returns the human-readable name for a checker id.
func Checker(id string) string {
	if name, ok := checkers[id]; ok {
		return name
	}
	return id
}

// CheckerWithCode returns "Color Contrast (contrast)" format.
func CheckerWithCode(id string) string {
	if name, ok := checkers[id]; ok {
		return name + " (" + id + ")"
	}
	return id
}

// CheckerCategory maps a checker id to the short issue category used in
// extracted issue files.
func CheckerCategory(id string) string {
	switch id {
	case "contrast":
		return "contrast"
	case "keyboard-focus":
		return "keyboard"
	case "zoom":
		return "zoom"
	case "accessibility-tree":
		return "structure"
	default:
		return id
	}
}

// --- Run phases ---

var phases = map[string]string{
	"setup":           "Setup",
	"page_scan":       "Page Scan",
	"page_processing": "Page Processing",
	"report":          "Reporting",
	"cleanup":         "Cleanup",
}

// Phase returns the human-readable name for a run phase.
func Phase(code string) string {
	if name, ok := phases[code]; ok {
		return name
	}
	return code
}

// --- Verdicts ---

// Verdict maps a run outcome to the word printed in summaries.
func Verdict(success bool) string {
	if success {
		return "PASS"
	}
	return "FAIL"
}
