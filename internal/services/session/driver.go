package session

import "context"

// By selects the lookup mechanism of a locator strategy.
type By int

const (
	// ByCSS matches elements with a CSS selector.
	ByCSS By = iota
	// ByXPath matches elements with an XPath expression.
	ByXPath
	// ByButtonText scans all interactive controls for visible text
	// containing the query. Last-resort strategy: the target app's element
	// ids are not stable across releases, button labels mostly are.
	ByButtonText
)

func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	case ByButtonText:
		return "button-text"
	default:
		return "unknown"
	}
}

// Strategy is one way to find a control. Controls are looked up through an
// ordered list of strategies, tried in sequence until one matches.
type Strategy struct {
	By    By
	Query string
}

// Driver is the browser capability the session needs, satisfiable by any
// headless automation tool (see internal/browser for the chromedp one).
// All operations act on the current page.
type Driver interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error
	// Count reports how many controls currently match the strategy.
	Count(ctx context.Context, s Strategy) (int, error)
	// Fill clears the first control matching the strategy and types value
	// into it.
	Fill(ctx context.Context, s Strategy, value string) error
	// FillNth clears and fills the index-th (0-based) control matching the
	// strategy.
	FillNth(ctx context.Context, s Strategy, index int, value string) error
	// Click activates the first control matching the strategy.
	Click(ctx context.Context, s Strategy) error
	// Evaluate runs script in the page's global execution context,
	// unmarshaling the result into out when out is non-nil.
	Evaluate(ctx context.Context, script string, out any) error
	// Close releases the browser resource. Must be safe to call on every
	// exit path.
	Close(ctx context.Context) error
}
