// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"time"
)

// PreviewFrameSelector is the fixed iframe boundary the authoring UI renders
// target pages inside. Element-scoped operations resolve selectors within
// this frame's document when it is present, and against the main document
// otherwise.
const PreviewFrameSelector = "#web-preview-iframe"

// ErrTimeout indicates element resolution or interaction exceeded its
// timeout. Callers treat this as an expected action failure, not a fault.
var ErrTimeout = errors.New("timed out waiting for element")

// NavigationInfo describes where a navigation settled.
type NavigationInfo struct {
	URL    string
	Title  string
	Status int
}

// PageObserver receives best-effort diagnostic events from a live page.
// Implementations must not block; callbacks arrive on driver goroutines.
type PageObserver interface {
	OnConsole(level, text string)
	OnRequest(method, url string)
	OnResponse(status int, url string)
}

// Page is one live, remotely controlled browser tab. Element-scoped calls
// (Click, Fill, SelectOption, TextContent, InputValue, Evaluate) resolve
// through the preview frame boundary when present.
type Page interface {
	// Navigate loads a URL and blocks until the network is idle or the
	// timeout elapses.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigationInfo, error)
	// Evaluate runs a JavaScript function body in the page (or preview
	// frame) context and returns its JSON-compatible result.
	Evaluate(ctx context.Context, script string) (any, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error
	TextContent(ctx context.Context, selector string, timeout time.Duration) (string, error)
	InputValue(ctx context.Context, selector string, timeout time.Duration) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	URL() string
	Title() (string, error)
	// Observe attaches a diagnostic observer. At most one is supported.
	Observe(obs PageObserver)
	Close(ctx context.Context) error
}

// Driver owns the browser process and hands out pages. The session registry
// is written against this capability set, not any specific vendor API.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
	Shutdown(ctx context.Context) error
}
