package check

import (
	"context"
	"fmt"
	"time"

	"beacon/internal/surface"
)

// overflowTolerance absorbs scrollbar width and sub-pixel rounding when
// comparing scroll extent against the viewport.
const overflowTolerance = 10

// brokenOffscreenThreshold is the number of significantly off-screen
// elements beyond which the layout counts as broken.
const brokenOffscreenThreshold = 5

// wcagZoomLevel is the magnification WCAG 1.4.4/1.4.10 requires content to
// survive.
const wcagZoomLevel = 2.0

const setZoomExpr = `(() => { document.documentElement.style.zoom = '%g'; return true; })()`

const resetZoomExpr = `(() => { document.documentElement.style.zoom = ''; return true; })()`

// zoomMeasureExpr reads scroll vs. viewport dimensions and counts elements
// pushed significantly outside the viewport.
const zoomMeasureExpr = `(() => {
	const doc = document.documentElement;
	let offscreen = 0;
	document.querySelectorAll('body *').forEach(el => {
		const r = el.getBoundingClientRect();
		if (r.width < 10 || r.height < 10) return;
		if (r.left > innerWidth + 50 || r.top > innerHeight + 200) offscreen++;
	});
	return {
		scrollWidth: doc.scrollWidth,
		scrollHeight: doc.scrollHeight,
		innerWidth: innerWidth,
		innerHeight: innerHeight,
		offscreen: offscreen
	};
})()`

// zoomMetrics mirrors the measurement expression output.
type zoomMetrics struct {
	ScrollWidth  int `json:"scrollWidth"`
	ScrollHeight int `json:"scrollHeight"`
	InnerWidth   int `json:"innerWidth"`
	InnerHeight  int `json:"innerHeight"`
	Offscreen    int `json:"offscreen"`
}

// ZoomLevelResult is the verdict for one zoom multiplier.
type ZoomLevelResult struct {
	Level        float64 `json:"level"`
	ScrollWidth  int     `json:"scroll_width"`
	ScrollHeight int     `json:"scroll_height"`
	InnerWidth   int     `json:"inner_width"`
	InnerHeight  int     `json:"inner_height"`
	Offscreen    int     `json:"offscreen"`
	Overflow     bool    `json:"overflow"`
	Broken       bool    `json:"broken"`
	OK           bool    `json:"ok"`
}

// ZoomData is the zoom checker payload.
type ZoomData struct {
	Levels       []ZoomLevelResult `json:"levels"`
	HighestClean float64           `json:"highest_clean_level"`
	MeetsWCAG    bool              `json:"meets_wcag"` // content survives 200% zoom
}

// ZoomChecker applies each configured zoom multiplier, measures layout
// overflow and off-screen spill, and reports the highest clean level. It
// mutates global page zoom while running and always resets it, even on
// error; siblings reading layout concurrently will observe the mutation.
type ZoomChecker struct {
	enabled bool
}

// NewZoomChecker returns the checker in its enabled state.
func NewZoomChecker() *ZoomChecker { return &ZoomChecker{enabled: true} }

func (c *ZoomChecker) Name() string  { return "zoom" }
func (c *ZoomChecker) Priority() int { return 30 }
func (c *ZoomChecker) Enabled() bool { return c.enabled }
func (c *ZoomChecker) Disable()      { c.enabled = false }

func (c *ZoomChecker) Run(ctx context.Context, sf surface.Surface, pageName string, opts Options) Result {
	defer func() { _ = sf.Evaluate(ctx, resetZoomExpr, nil) }()

	data := ZoomData{}
	for _, level := range opts.ZoomLevels {
		if level > opts.MaxZoom {
			continue
		}
		if err := sf.Evaluate(ctx, fmt.Sprintf(setZoomExpr, level), nil); err != nil {
			return errorResult(c.Name(), pageName, fmt.Errorf("set zoom %.2f: %w", level, err))
		}
		var m zoomMetrics
		if err := sf.Evaluate(ctx, zoomMeasureExpr, &m); err != nil {
			return errorResult(c.Name(), pageName, fmt.Errorf("measure at zoom %.2f: %w", level, err))
		}
		data.Levels = append(data.Levels, evaluateZoomLevel(level, m))
	}

	for _, lr := range data.Levels {
		if lr.OK && lr.Level > data.HighestClean {
			data.HighestClean = lr.Level
		}
		if lr.OK && lr.Level >= wcagZoomLevel {
			data.MeetsWCAG = true
		}
	}

	score := 0
	if len(data.Levels) > 0 {
		clean := 0
		for _, lr := range data.Levels {
			if lr.OK {
				clean++
			}
		}
		score = clampScore(clean * 100 / len(data.Levels))
	}

	return Result{
		CheckerName: c.Name(),
		PageName:    pageName,
		Timestamp:   time.Now(),
		Success:     data.MeetsWCAG,
		Score:       score,
		Data:        data,
	}
}

// evaluateZoomLevel applies the overflow tolerance and the off-screen
// breakage threshold to one measurement. Only horizontal overflow counts:
// vertical scrolling is expected, sideways scrolling at zoom is the reflow
// failure WCAG cares about.
func evaluateZoomLevel(level float64, m zoomMetrics) ZoomLevelResult {
	overflow := m.ScrollWidth > m.InnerWidth+overflowTolerance
	broken := m.Offscreen > brokenOffscreenThreshold
	return ZoomLevelResult{
		Level:        level,
		ScrollWidth:  m.ScrollWidth,
		ScrollHeight: m.ScrollHeight,
		InnerWidth:   m.InnerWidth,
		InnerHeight:  m.InnerHeight,
		Offscreen:    m.Offscreen,
		Overflow:     overflow,
		Broken:       broken,
		OK:           !overflow && !broken,
	}
}
