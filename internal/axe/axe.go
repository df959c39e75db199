// Package axe wraps the in-page accessibility rule engine. The primary scan
// path injects and verifies the engine, then races the run against a
// timeout; a legacy fallback path trades thoroughness for availability when
// the primary stalls or fails.
package axe

import (
	"encoding/json"
	"fmt"
	"time"
)

// Node is one offending (or passing) element within a rule result.
type Node struct {
	Target         []string `json:"target"`
	HTML           string   `json:"html"`
	FailureSummary string   `json:"failureSummary"`
}

// Rule is one rule outcome returned by the engine.
type Rule struct {
	ID          string `json:"id"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
	Nodes       []Node `json:"nodes"`
}

// Result is the per-page scan outcome in the uniform envelope shape.
type Result struct {
	PageName     string    `json:"page_name"`
	Timestamp    time.Time `json:"timestamp"`
	Violations   []Rule    `json:"violations"`
	Passes       []Rule    `json:"passes"`
	Incomplete   []Rule    `json:"incomplete"`
	Inapplicable []Rule    `json:"inapplicable"`

	// UsedLegacyFallback is set when the primary path failed and the legacy
	// scan produced this result.
	UsedLegacyFallback bool `json:"used_legacy_fallback,omitempty"`
	// FailedFallback is set when both paths failed; the result sets are
	// empty and Error carries the fallback's message.
	FailedFallback bool   `json:"failed_fallback,omitempty"`
	Error          string `json:"error,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Failed reports whether the scan produced no usable engine output.
func (r Result) Failed() bool { return r.FailedFallback }

// Options configures a Scanner.
type Options struct {
	// Source is the rule-engine bundle to inject. Empty means the hosted
	// application ships its own copy and injection only verifies presence.
	Source string
	// RunOnly restricts scans to the named rules; per-call subsets override.
	RunOnly []string
	// Rules enables or disables individual rules by id.
	Rules map[string]bool
	// Timeout bounds the primary run. The fallback runs unbounded.
	Timeout time.Duration

	// SettleDelay is the pause between injection and the primary run.
	SettleDelay time.Duration
	// LegacySettleDelay is the longer pause the fallback uses instead of
	// poll-based verification.
	LegacySettleDelay time.Duration
	// VerifyTimeout bounds the post-injection presence poll.
	VerifyTimeout time.Duration
}

// withDefaults fills zero-value timing knobs.
func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	if o.LegacySettleDelay <= 0 {
		o.LegacySettleDelay = 2 * time.Second
	}
	if o.VerifyTimeout <= 0 {
		o.VerifyTimeout = 3 * time.Second
	}
	return o
}

// runOptions is the options object handed to the in-page engine.
type runOptions struct {
	RunOnly  *runOnlyClause  `json:"runOnly,omitempty"`
	Rules    map[string]rule `json:"rules,omitempty"`
	Reporter string          `json:"reporter,omitempty"`
}

type runOnlyClause struct {
	Type   string   `json:"type"`
	Values []string `json:"values"`
}

type rule struct {
	Enabled bool `json:"enabled"`
}

// buildRunExpr renders the axe.run invocation. runOnly, when non-empty,
// overrides the scanner-level subset; the legacy path passes restrict=false
// to run the full rule set.
func buildRunExpr(opts Options, runOnly []string, restrict bool) (string, error) {
	ro := runOptions{Reporter: "v2"}
	if restrict {
		subset := runOnly
		if len(subset) == 0 {
			subset = opts.RunOnly
		}
		if len(subset) > 0 {
			ro.RunOnly = &runOnlyClause{Type: "rule", Values: subset}
		}
		if len(opts.Rules) > 0 {
			ro.Rules = make(map[string]rule, len(opts.Rules))
			for id, enabled := range opts.Rules {
				ro.Rules[id] = rule{Enabled: enabled}
			}
		}
	}
	encoded, err := json.Marshal(ro)
	if err != nil {
		return "", fmt.Errorf("encode run options: %w", err)
	}
	return fmt.Sprintf(`axe.run(document, %s).then(r => ({
		violations: r.violations, passes: r.passes,
		incomplete: r.incomplete, inapplicable: r.inapplicable
	}))`, encoded), nil
}
