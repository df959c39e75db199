package check

import (
	"testing"
)

func TestParseContrastRatio(t *testing.T) {
	cases := []struct {
		summary string
		want    float64
	}{
		{"Element has insufficient color contrast of 2.51 (foreground color: #777)", 2.51},
		{"Element has insufficient color contrast of 4.4", 4.4},
		{"Expected contrast ratio of at least 4.5:1", 4.5},
		{"no numbers here", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := parseContrastRatio(c.summary); got != c.want {
			t.Errorf("parseContrastRatio(%q) = %v, want %v", c.summary, got, c.want)
		}
	}
}

func TestClassifyContrast(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{1.2, SeverityCritical},
		{2.99, SeverityCritical},
		{3.0, SeverityHigh},
		{4.49, SeverityHigh},
		{4.5, SeverityMedium},
		{6.9, SeverityMedium},
		{7.5, SeverityMedium}, // above every threshold still reports medium
		{0, SeverityMedium},   // unparseable defaults to medium
	}
	for _, c := range cases {
		if got := classifyContrast(c.ratio); got != c.want {
			t.Errorf("classifyContrast(%v) = %s, want %s", c.ratio, got, c.want)
		}
	}
}
