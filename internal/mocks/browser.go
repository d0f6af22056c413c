// File: internal/mocks/browser.go
// Package mocks provides in-memory fakes for the browser driver interfaces
// so registry, scanner, executor, and handler tests run without a real
// browser process.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/forgeqa/testforge/internal/browser"
)

// FakeDriver hands out FakePages. Behavior is overridable per test through
// the function fields; the zero value yields working pages.
type FakeDriver struct {
	mu    sync.Mutex
	pages []*FakePage

	// NewPageErr, when set, makes NewPage fail.
	NewPageErr error
	// PageSetup, when set, customizes each new page before it is returned.
	PageSetup func(p *FakePage)

	ShutdownCalled bool
}

func (d *FakeDriver) NewPage(ctx context.Context) (browser.Page, error) {
	if d.NewPageErr != nil {
		return nil, d.NewPageErr
	}

	p := NewFakePage()
	if d.PageSetup != nil {
		d.PageSetup(p)
	}

	d.mu.Lock()
	d.pages = append(d.pages, p)
	d.mu.Unlock()
	return p, nil
}

func (d *FakeDriver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ShutdownCalled = true
	return nil
}

// Pages returns every page handed out so far.
func (d *FakeDriver) Pages() []*FakePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakePage(nil), d.pages...)
}

// FakePage is a scriptable Page. Per-call hooks win over the canned fields.
type FakePage struct {
	mu sync.Mutex

	// Canned results.
	NavInfo    browser.NavigationInfo
	EvalResult any
	Texts      map[string]string // selector -> textContent
	Values     map[string]string // selector -> input value
	ShotBytes  []byte

	// Injected failures.
	NavigateErr error
	EvaluateErr error
	ClickErr    error
	FillErr     error
	SelectErr   error
	TextErr     error
	ValueErr    error
	CloseErr    error

	// Recorded calls.
	NavigatedTo []string
	Clicked     []string
	Filled      map[string]string
	Selected    map[string]string
	Closed      bool

	observer browser.PageObserver
}

func NewFakePage() *FakePage {
	return &FakePage{
		NavInfo:   browser.NavigationInfo{URL: "https://example.test/", Title: "Example", Status: 200},
		Texts:     map[string]string{},
		Values:    map[string]string{},
		Filled:    map[string]string{},
		Selected:  map[string]string{},
		ShotBytes: []byte("png"),
	}
}

func (p *FakePage) Navigate(ctx context.Context, url string, timeout time.Duration) (*browser.NavigationInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NavigateErr != nil {
		return nil, p.NavigateErr
	}
	p.NavigatedTo = append(p.NavigatedTo, url)
	info := p.NavInfo
	if info.URL == "" {
		info.URL = url
	}
	return &info, nil
}

func (p *FakePage) Evaluate(ctx context.Context, script string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.EvaluateErr != nil {
		return nil, p.EvaluateErr
	}
	return p.EvalResult, nil
}

func (p *FakePage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ClickErr != nil {
		return p.ClickErr
	}
	p.Clicked = append(p.Clicked, selector)
	return nil
}

func (p *FakePage) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FillErr != nil {
		return p.FillErr
	}
	p.Filled[selector] = value
	return nil
}

func (p *FakePage) SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SelectErr != nil {
		return p.SelectErr
	}
	p.Selected[selector] = value
	return nil
}

func (p *FakePage) TextContent(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TextErr != nil {
		return "", p.TextErr
	}
	return p.Texts[selector], nil
}

func (p *FakePage) InputValue(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ValueErr != nil {
		return "", p.ValueErr
	}
	return p.Values[selector], nil
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ShotBytes, nil
}

func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.NavInfo.URL
}

func (p *FakePage) Title() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.NavInfo.Title, nil
}

func (p *FakePage) Observe(obs browser.PageObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = obs
}

// Observer returns the attached observer, for tests that emit events.
func (p *FakePage) Observer() browser.PageObserver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.observer
}

func (p *FakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return p.CloseErr
}
