package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"beacon/internal/surface"
)

// Focus problem classes.
const (
	ProblemNotFocusable   = "not-focusable"
	ProblemNoVisibleFocus = "no-visible-focus"
	ProblemMissingLabel   = "missing-label"
)

// focusProbe enumerates visible interactive elements (up to the cap baked
// into the expression), focuses each, inspects the computed outline and
// box-shadow, and tags every inspected element with a marker attribute so
// flagged ones can be screenshotted afterward. The previously focused
// element is left for the cleanup expression to restore.
const focusProbe = `(() => {
	const selectors = 'a[href], button, input, select, textarea, ' +
		'[role="button"], [role="link"], [role="menuitem"], [role="tab"], ' +
		'[role="checkbox"], [role="switch"], [tabindex]';
	const visible = el => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0 &&
			r.bottom > 0 && r.right > 0 &&
			r.top < innerHeight && r.left < innerWidth;
	};
	const els = Array.from(document.querySelectorAll(selectors)).filter(el => {
		const ti = el.getAttribute('tabindex');
		if (ti !== null && parseInt(ti, 10) < 0) return false;
		return visible(el);
	}).slice(0, %d);

	const previous = document.activeElement;
	const out = els.map((el, i) => {
		el.setAttribute('data-beacon-focus-idx', String(i));
		let focusable = false;
		try {
			el.focus({ preventScroll: true });
			focusable = document.activeElement === el;
		} catch (e) {}
		const cs = getComputedStyle(el);
		const hasOutline = cs.outlineStyle !== 'none' && parseFloat(cs.outlineWidth) > 0;
		const hasShadow = cs.boxShadow && cs.boxShadow !== 'none';
		const name = (el.getAttribute('aria-label') ||
			el.getAttribute('aria-labelledby') ||
			el.getAttribute('title') ||
			el.getAttribute('alt') ||
			(el.labels && el.labels.length ? 'labelled' : '') ||
			el.textContent || '').trim();
		return {
			index: i,
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute('role') || '',
			focusable: focusable,
			visibleFocus: focusable && (hasOutline || hasShadow),
			hasName: name.length > 0,
			text: name.slice(0, 60)
		};
	});
	if (previous && previous.focus) { try { previous.focus({ preventScroll: true }); } catch (e) {} }
	return out;
})()`

// focusCleanup removes the marker attributes the probe added.
const focusCleanup = `(() => {
	document.querySelectorAll('[data-beacon-focus-idx]')
		.forEach(el => el.removeAttribute('data-beacon-focus-idx'));
	return true;
})()`

// focusElement mirrors one probe entry.
type focusElement struct {
	Index        int    `json:"index"`
	Tag          string `json:"tag"`
	Role         string `json:"role"`
	Focusable    bool   `json:"focusable"`
	VisibleFocus bool   `json:"visibleFocus"`
	HasName      bool   `json:"hasName"`
	Text         string `json:"text"`
}

// FocusProblem is one flagged interactive element. Selector targets the
// marker attribute the probe left on the element and is only valid until
// cleanup runs.
type FocusProblem struct {
	Kind       string `json:"kind"`
	Severity   string `json:"severity"`
	Tag        string `json:"tag"`
	Selector   string `json:"selector"`
	Role       string `json:"role,omitempty"`
	Text       string `json:"text,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// KeyboardData is the keyboard checker payload.
type KeyboardData struct {
	ElementsChecked int            `json:"elements_checked"`
	Problems        []FocusProblem `json:"problems"`
}

// KeyboardChecker verifies that interactive elements are reachable by
// keyboard, show a visible focus indicator, and carry an accessible name.
type KeyboardChecker struct {
	enabled bool
}

// NewKeyboardChecker returns the checker in its enabled state.
func NewKeyboardChecker() *KeyboardChecker { return &KeyboardChecker{enabled: true} }

func (c *KeyboardChecker) Name() string  { return "keyboard-focus" }
func (c *KeyboardChecker) Priority() int { return 20 }
func (c *KeyboardChecker) Enabled() bool { return c.enabled }
func (c *KeyboardChecker) Disable()      { c.enabled = false }

func (c *KeyboardChecker) Run(ctx context.Context, sf surface.Surface, pageName string, opts Options) Result {
	var elements []focusElement
	if err := sf.Evaluate(ctx, fmt.Sprintf(focusProbe, opts.MaxElements), &elements); err != nil {
		return errorResult(c.Name(), pageName, fmt.Errorf("focus probe: %w", err))
	}
	// Marker attributes are removed after screenshots are taken.
	defer func() { _ = sf.Evaluate(ctx, focusCleanup, nil) }()

	problems := classifyFocus(elements)

	shots := 0
	var paths []string
	for i := range problems {
		if opts.ScreenshotDir == "" || shots >= opts.MaxScreenshots {
			break
		}
		path, err := c.captureProblem(ctx, sf, pageName, opts.ScreenshotDir, &problems[i], shots)
		if err != nil {
			continue // screenshots are best-effort
		}
		paths = append(paths, path)
		shots++
	}

	score := 100
	for _, p := range problems {
		switch p.Severity {
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
		Success:     len(problems) == 0,
		Score:       clampScore(score),
		Screenshots: paths,
		Data: KeyboardData{
			ElementsChecked: len(elements),
			Problems:        problems,
		},
	}
}

// classifyFocus maps probe output to flagged problems. An element can carry
// several problems (e.g. unfocusable and unnamed).
func classifyFocus(elements []focusElement) []FocusProblem {
	var problems []FocusProblem
	for _, el := range elements {
		add := func(kind string) {
			problems = append(problems, FocusProblem{
				Kind:     kind,
				Severity: focusSeverity(kind),
				Tag:      el.Tag,
				Selector: elementSelector(el),
				Role:     el.Role,
				Text:     el.Text,
			})
		}
		if !el.Focusable {
			add(ProblemNotFocusable)
		} else if !el.VisibleFocus {
			add(ProblemNoVisibleFocus)
		}
		if !el.HasName {
			add(ProblemMissingLabel)
		}
	}
	return problems
}

func focusSeverity(kind string) string {
	switch kind {
	case ProblemNotFocusable:
		return SeverityCritical
	case ProblemNoVisibleFocus:
		return SeverityHigh
	case ProblemMissingLabel:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// elementSelector returns the marker selector targeting the probed element.
func elementSelector(el focusElement) string {
	return fmt.Sprintf(`[data-beacon-focus-idx="%d"]`, el.Index)
}

func (c *KeyboardChecker) captureProblem(ctx context.Context, sf surface.Surface, pageName, dir string, p *FocusProblem, n int) (string, error) {
	buf, err := sf.ElementScreenshot(ctx, p.Selector)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("focus-%s-%02d-%s.png", sanitize(pageName), n, p.Kind)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", err
	}
	p.Screenshot = path
	return path, nil
}

// sanitize makes a page name safe for use in a filename.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
