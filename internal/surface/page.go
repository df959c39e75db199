package surface

import (
	"context"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Page is the chromedp-backed Surface over one CDP target.
type Page struct {
	ctx context.Context // chromedp target context; owns the connection
}

var _ Surface = (*Page)(nil)

// NewPage wraps an established chromedp target context.
func NewPage(targetCtx context.Context) *Page {
	return &Page{ctx: targetCtx}
}

// run executes actions on the target, honoring the caller's deadline when
// one is set. chromedp requires the action context to descend from the
// target context, so the two are bridged here.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		rctx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(rctx, actions...)
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *Page) WaitReady(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *Page) Evaluate(ctx context.Context, expr string, out any) error {
	await := func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}
	if out == nil {
		var discard []byte
		return p.run(ctx, chromedp.Evaluate(expr, &discard, await))
	}
	return p.run(ctx, chromedp.Evaluate(expr, out, await))
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (p *Page) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.ByQuery))
	return buf, err
}
