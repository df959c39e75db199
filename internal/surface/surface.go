// Package surface abstracts the automation primitives used to drive and
// inspect a single window of the hosted application. Checkers and the
// scanner depend on the Surface interface only; the chromedp-backed Page is
// the production implementation.
package surface

import "context"

// Surface drives the current window. Evaluate awaits promises, so in-page
// expressions may return either a value or a thenable.
type Surface interface {
	// Click dispatches a click on the first element matching selector.
	Click(ctx context.Context, selector string) error
	// WaitVisible blocks until the element is visible.
	WaitVisible(ctx context.Context, selector string) error
	// WaitReady blocks until the element is attached to the DOM.
	WaitReady(ctx context.Context, selector string) error
	// Evaluate runs expr in-page and unmarshals the result into out.
	// Pass nil out to discard the result.
	Evaluate(ctx context.Context, expr string, out any) error
	// Title returns the window title.
	Title(ctx context.Context) (string, error)
	// Screenshot captures the full surface as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// ElementScreenshot captures the first element matching selector.
	ElementScreenshot(ctx context.Context, selector string) ([]byte, error)
}
