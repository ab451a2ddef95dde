package browser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"plsync/internal/services/session"
)

// countByTextScript and clickByTextScript implement the generic
// interactive-control scan used as a last-resort locator strategy.
const (
	countByTextScript = `Array.from(document.querySelectorAll('button')).filter(b => b.textContent.includes(%s)).length`
	clickByTextScript = `(() => {
	const btn = Array.from(document.querySelectorAll('button')).find(b => b.textContent.includes(%s));
	if (btn) { btn.click(); return true; }
	return false;
})()`
)

// Chrome drives a headless Chrome instance through chromedp and satisfies
// session.Driver. It owns the browser process: Close must run on every
// exit path.
type Chrome struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewChrome starts a headless Chrome. The browser process launches eagerly
// so a missing binary fails here and not mid-login.
func NewChrome(ctx context.Context) (*Chrome, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, errors.Wrap(err, "start headless chrome")
	}

	return &Chrome{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(chromedp.Run(c.browserCtx, chromedp.Navigate(url)), "navigate to %s", url)
}

func (c *Chrome) Count(ctx context.Context, s session.Strategy) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if s.By == session.ByButtonText {
		var n int
		script := fmt.Sprintf(countByTextScript, strconv.Quote(s.Query))
		if err := chromedp.Run(c.browserCtx, chromedp.Evaluate(script, &n)); err != nil {
			return 0, errors.Wrap(err, "count controls by text")
		}
		return n, nil
	}

	nodes, err := c.nodes(s)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (c *Chrome) Fill(ctx context.Context, s session.Strategy, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opt := queryOption(s)
	return errors.Wrapf(chromedp.Run(c.browserCtx,
		chromedp.SetValue(s.Query, "", opt),
		chromedp.SendKeys(s.Query, value, opt),
	), "fill %q", s.Query)
}

func (c *Chrome) FillNth(ctx context.Context, s session.Strategy, index int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nodes, err := c.nodes(s)
	if err != nil {
		return err
	}
	if index >= len(nodes) {
		return errors.Errorf("control %d of %q not present (%d matched)", index, s.Query, len(nodes))
	}

	id := []cdp.NodeID{nodes[index].NodeID}
	return errors.Wrapf(chromedp.Run(c.browserCtx,
		chromedp.Focus(id, chromedp.ByNodeID),
		chromedp.SetValue(id, "", chromedp.ByNodeID),
		chromedp.SendKeys(id, value, chromedp.ByNodeID),
	), "fill control %d of %q", index, s.Query)
}

func (c *Chrome) Click(ctx context.Context, s session.Strategy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.By == session.ByButtonText {
		var clicked bool
		script := fmt.Sprintf(clickByTextScript, strconv.Quote(s.Query))
		if err := chromedp.Run(c.browserCtx, chromedp.Evaluate(script, &clicked)); err != nil {
			return errors.Wrap(err, "click control by text")
		}
		if !clicked {
			return errors.Errorf("no control with text %q", s.Query)
		}
		return nil
	}

	return errors.Wrapf(chromedp.Run(c.browserCtx,
		chromedp.Click(s.Query, queryOption(s)),
	), "click %q", s.Query)
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(chromedp.Run(c.browserCtx, chromedp.Evaluate(script, out)), "evaluate script")
}

func (c *Chrome) Close(context.Context) error {
	c.browserCancel()
	c.allocCancel()
	return nil
}

func (c *Chrome) nodes(s session.Strategy) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := chromedp.Run(c.browserCtx,
		chromedp.Nodes(s.Query, &nodes, queryOption(s), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", s.Query)
	}
	return nodes, nil
}

func queryOption(s session.Strategy) chromedp.QueryOption {
	if s.By == session.ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}
