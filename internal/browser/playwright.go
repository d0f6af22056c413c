// internal/browser/playwright.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/internal/config"
)

// PlaywrightDriver runs a single Chromium process through Playwright and
// opens an isolated browser context per page. Initialization is deferred
// until the first page is requested.
type PlaywrightDriver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	pw      *playwright.Playwright
	browser playwright.Browser

	initOnce sync.Once
	initErr  error
}

var _ Driver = (*PlaywrightDriver)(nil)

// NewPlaywrightDriver creates the driver. The browser process is not
// launched until NewPage is first called.
func NewPlaywrightDriver(cfg config.BrowserConfig, logger *zap.Logger) *PlaywrightDriver {
	return &PlaywrightDriver{
		cfg:    cfg,
		logger: logger.Named("browser_driver"),
	}
}

// initialize starts the Playwright driver and launches the browser instance.
func (d *PlaywrightDriver) initialize(ctx context.Context) error {
	d.initOnce.Do(func() {
		d.logger.Info("Initializing Playwright and launching browser...")

		if err := d.ensureInstallation(ctx); err != nil {
			d.initErr = err
			return
		}

		pw, err := playwright.Run()
		if err != nil {
			d.initErr = fmt.Errorf("failed to start playwright driver: %w", err)
			return
		}
		d.pw = pw

		browser, err := pw.Chromium.Launch(d.prepareLaunchOptions())
		if err != nil {
			pw.Stop() // Clean up the driver if browser launch fails.
			d.initErr = fmt.Errorf("failed to launch browser instance: %w", err)
			return
		}
		d.browser = browser

		d.logger.Info("Browser driver initialized.", zap.String("browser_version", browser.Version()))
	})
	return d.initErr
}

func (d *PlaywrightDriver) ensureInstallation(ctx context.Context) error {
	installCtx, installCancel := context.WithTimeout(ctx, d.cfg.InstallTimeout)
	defer installCancel()

	// Run the install command in a goroutine as it blocks.
	installErrChan := make(chan error, 1)
	go func() {
		options := &playwright.RunOptions{
			Browsers: []string{"chromium"},
		}
		if err := playwright.Install(options); err != nil {
			installErrChan <- fmt.Errorf("failed to install playwright browsers: %w", err)
		} else {
			installErrChan <- nil
		}
	}()

	select {
	case err := <-installErrChan:
		return err
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

func (d *PlaywrightDriver) prepareLaunchOptions() playwright.BrowserTypeLaunchOptions {
	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.cfg.Headless),
		Timeout:  playwright.Float(float64(d.cfg.LaunchTimeout.Milliseconds())),
	}

	// Default arguments necessary for stability, especially in containers.
	defaultArgs := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
	}
	launchOptions.Args = append(defaultArgs, d.cfg.Args...)
	return launchOptions
}

// NewPage opens an isolated browser context with a single page.
func (d *PlaywrightDriver) NewPage(ctx context.Context) (Page, error) {
	if err := d.initialize(ctx); err != nil {
		return nil, err
	}

	browserCtx, err := d.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &playwrightPage{
		page:       page,
		browserCtx: browserCtx,
		logger:     d.logger,
	}, nil
}

// Shutdown closes the browser instance and stops the Playwright driver.
func (d *PlaywrightDriver) Shutdown(ctx context.Context) error {
	if d.pw == nil {
		return nil
	}

	var shutdownErr error
	if d.browser != nil {
		if err := d.browser.Close(); err != nil && !isClosedErr(err) {
			shutdownErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if err := d.pw.Stop(); err != nil {
		if shutdownErr == nil {
			shutdownErr = fmt.Errorf("failed to stop playwright driver: %w", err)
		}
	}
	return shutdownErr
}

// playwrightPage adapts one Playwright page (plus its isolated context) to
// the Page interface.
type playwrightPage struct {
	page       playwright.Page
	browserCtx playwright.BrowserContext
	logger     *zap.Logger
}

var _ Page = (*playwrightPage)(nil)

func (p *playwrightPage) Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigationInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, classifyDriverErr(err)
	}

	info := &NavigationInfo{URL: p.page.URL()}
	if resp != nil {
		info.Status = resp.Status()
	}
	if title, err := p.page.Title(); err == nil {
		info.Title = title
	}
	return info, nil
}

// resolveLocator scopes a selector to the preview frame when the boundary
// iframe exists in the current document, otherwise to the main frame.
func (p *playwrightPage) resolveLocator(selector string) playwright.Locator {
	count, err := p.page.Locator(PreviewFrameSelector).Count()
	if err == nil && count > 0 {
		return p.page.FrameLocator(PreviewFrameSelector).Locator(selector)
	}
	return p.page.Locator(selector)
}

func (p *playwrightPage) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// When the preview iframe is present the scan must run inside its
	// document, not the host document.
	handle, err := p.page.QuerySelector(PreviewFrameSelector)
	if err == nil && handle != nil {
		frame, err := handle.ContentFrame()
		if err != nil {
			return nil, classifyDriverErr(err)
		}
		if frame != nil {
			result, err := frame.Evaluate(script)
			return result, classifyDriverErr(err)
		}
	}

	result, err := p.page.Evaluate(script)
	return result, classifyDriverErr(err)
}

func (p *playwrightPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.resolveLocator(selector).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return classifyDriverErr(err)
}

func (p *playwrightPage) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Fill replaces the current contents, which covers the clear-then-type
	// contract.
	err := p.resolveLocator(selector).Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return classifyDriverErr(err)
}

func (p *playwrightPage) SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.resolveLocator(selector).SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	}, playwright.LocatorSelectOptionOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return classifyDriverErr(err)
}

func (p *playwrightPage) TextContent(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := p.resolveLocator(selector).TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return text, classifyDriverErr(err)
}

func (p *playwrightPage) InputValue(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, err := p.resolveLocator(selector).InputValue(playwright.LocatorInputValueOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return value, classifyDriverErr(err)
}

func (p *playwrightPage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	return data, classifyDriverErr(err)
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Title() (string, error) {
	return p.page.Title()
}

func (p *playwrightPage) Observe(obs PageObserver) {
	p.page.OnConsole(func(msg playwright.ConsoleMessage) {
		obs.OnConsole(msg.Type(), msg.Text())
	})
	p.page.OnRequest(func(req playwright.Request) {
		obs.OnRequest(req.Method(), req.URL())
	})
	p.page.OnResponse(func(resp playwright.Response) {
		obs.OnResponse(resp.Status(), resp.URL())
	})
}

func (p *playwrightPage) Close(ctx context.Context) error {
	var closeErr error
	if err := p.page.Close(); err != nil && !isClosedErr(err) {
		closeErr = fmt.Errorf("failed to close page: %w", err)
	}
	if err := p.browserCtx.Close(); err != nil && !isClosedErr(err) {
		if closeErr == nil {
			closeErr = fmt.Errorf("failed to close browser context: %w", err)
		}
	}
	return closeErr
}

// classifyDriverErr maps Playwright timeout errors onto ErrTimeout so
// callers can distinguish expected action failures from faults. Playwright
// reports them as "Timeout ...ms exceeded".
func classifyDriverErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "Timeout") && strings.Contains(msg, "exceeded") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// isClosedErr reports whether an error is a harmless already-closed
// condition during teardown.
func isClosedErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "has been closed") || strings.Contains(msg, "target closed")
}
