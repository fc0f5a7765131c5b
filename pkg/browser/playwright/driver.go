// Package playwright implements browser.Driver on top of Playwright.
//
// Chrome and Edge run as branded Chromium channels, Firefox as Playwright's
// Firefox build and Safari as WebKit. Internet Explorer has no Playwright
// engine and is rejected at launch.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/logging"
)

// EngineName identifies this engine in errors and logs.
const EngineName = "playwright"

// Launcher starts Playwright-driven browsers.
type Launcher struct {
	// SkipInstall skips downloading the Playwright driver and browsers.
	SkipInstall bool

	Logger *zap.Logger

	installOnce sync.Once
	installErr  error
}

// NewLauncher creates a Launcher that installs Playwright on first use.
func NewLauncher(logger *zap.Logger) *Launcher {
	return &Launcher{Logger: logging.OrNop(logger)}
}

func (l *Launcher) install() error {
	l.installOnce.Do(func() {
		if l.SkipInstall {
			return
		}
		// Output is discarded so driver downloads don't interleave with test logs.
		opts := &playwright.RunOptions{
			Verbose: false,
			Stdout:  io.Discard,
			Stderr:  io.Discard,
		}
		if err := playwright.Install(opts); err != nil {
			l.installErr = fmt.Errorf("failed to install playwright: %w", err)
		}
	})
	return l.installErr
}

// Launch starts the configured browser and opens a single page.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Browser == config.BrowserInternetExplorer {
		return nil, &browser.UnsupportedBrowserError{Engine: EngineName, Browser: opts.Browser}
	}
	if err := l.install(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(&playwright.RunOptions{Stdout: io.Discard, Stderr: io.Discard})
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	var bt playwright.BrowserType
	switch opts.Browser {
	case config.BrowserChrome:
		bt = pw.Chromium
		launchOpts.Channel = playwright.String("chrome")
	case config.BrowserEdge:
		bt = pw.Chromium
		launchOpts.Channel = playwright.String("msedge")
	case config.BrowserFirefox:
		bt = pw.Firefox
	case config.BrowserSafari:
		bt = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, &browser.UnsupportedBrowserError{Engine: EngineName, Browser: opts.Browser}
	}

	b, err := bt.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch %s: %w", opts.Browser.DisplayName(), err)
	}

	bctx, err := b.NewContext()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	d := &Driver{
		pw:      pw,
		browser: b,
		context: bctx,
		page:    page,
		logger:  logging.OrNop(l.Logger).With(zap.String("browser", string(opts.Browser))),
	}
	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame == page.MainFrame() {
			d.generation.Add(1)
		}
	})
	d.logger.Debug("playwright browser launched", zap.Bool("headless", opts.Headless))
	return d, nil
}

// Driver is a browser.Driver backed by one Playwright page.
type Driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *zap.Logger

	// generation counts main-frame navigations; elements from an older
	// generation are stale.
	generation atomic.Int64

	mu           sync.Mutex
	implicitWait time.Duration
	closed       bool
}

func (d *Driver) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if d.isClosed() {
		return browser.ErrDriverClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := d.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (d *Driver) FindOne(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if d.isClosed() {
		return nil, browser.ErrDriverClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	wait := d.implicitWait
	d.mu.Unlock()

	gen := d.generation.Load()
	var (
		handle playwright.ElementHandle
		err    error
	)
	if wait > 0 {
		handle, err = d.page.WaitForSelector(loc.CSS(), playwright.PageWaitForSelectorOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(float64(wait.Milliseconds())),
		})
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
		}
	} else {
		handle, err = d.page.QuerySelector(loc.CSS())
	}
	if err != nil {
		return nil, translate(err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return &element{driver: d, handle: handle, generation: gen}, nil
}

func (d *Driver) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if d.isClosed() {
		return nil, browser.ErrDriverClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := d.generation.Load()
	handles, err := d.page.QuerySelectorAll(loc.CSS())
	if err != nil {
		return nil, translate(err)
	}
	elements := make([]browser.Element, len(handles))
	for i, h := range handles {
		elements[i] = &element{driver: d, handle: h, generation: gen}
	}
	return elements, nil
}

func (d *Driver) Window() browser.Window {
	return window{d}
}

// SetImplicitWait also becomes the page's default timeout, which Playwright
// takes in milliseconds.
func (d *Driver) SetImplicitWait(wait time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return browser.ErrDriverClosed
	}
	d.implicitWait = wait
	if wait > 0 {
		d.page.SetDefaultTimeout(float64(wait.Milliseconds()))
	}
	return nil
}

func (d *Driver) CurrentURL() string {
	if d.isClosed() {
		return ""
	}
	return d.page.URL()
}

// Quit closes the page, context, browser and Playwright driver, collecting
// every error on the way.
func (d *Driver) Quit() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	var err error
	err = multierr.Append(err, d.page.Close())
	err = multierr.Append(err, d.context.Close())
	err = multierr.Append(err, d.browser.Close())
	if stopErr := d.pw.Stop(); stopErr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to stop playwright: %w", stopErr))
	}
	return err
}

type window struct {
	d *Driver
}

// Maximize resizes the viewport to the default desktop resolution. Playwright
// has no OS-level maximize and a headless browser has no window at all.
func (w window) Maximize(ctx context.Context) error {
	if w.d.isClosed() {
		return browser.ErrDriverClosed
	}
	return w.d.page.SetViewportSize(browser.DefaultViewportWidth, browser.DefaultViewportHeight)
}

type element struct {
	driver     *Driver
	handle     playwright.ElementHandle
	generation int64
}

func (e *element) check(ctx context.Context) error {
	if e.driver.isClosed() {
		return browser.ErrDriverClosed
	}
	if e.generation != e.driver.generation.Load() {
		return browser.ErrStaleElement
	}
	return ctx.Err()
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.check(ctx); err != nil {
		return "", err
	}
	text, err := e.handle.InnerText()
	if err != nil {
		return "", translate(err)
	}
	return strings.TrimSpace(text), nil
}

// Click clicks the element and waits for any navigation it triggered to load.
func (e *element) Click(ctx context.Context) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	if err := e.handle.Click(); err != nil {
		return translate(err)
	}
	if err := e.driver.page.WaitForLoadState(); err != nil {
		return fmt.Errorf("waiting for load after click: %w", err)
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.check(ctx); err != nil {
		return "", err
	}
	v, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", translate(err)
	}
	return v, nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	if err := e.check(ctx); err != nil {
		return false, err
	}
	v, err := e.handle.IsVisible()
	if err != nil {
		return false, translate(err)
	}
	return v, nil
}

// staleMessages are the Playwright error texts for handles whose node or
// execution context no longer exists.
var staleMessages = []string{
	"not attached to the DOM",
	"JSHandle is disposed",
	"Execution context was destroyed",
	"Cannot find context with specified id",
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, m := range staleMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %s", browser.ErrStaleElement, msg)
		}
	}
	return err
}
