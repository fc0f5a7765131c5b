// Package rod implements browser.Driver over the Chrome DevTools Protocol
// using go-rod. It drives Chrome, and Edge when a binary path is given.
package rod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/logging"
)

// EngineName identifies this engine in errors and logs.
const EngineName = "rod"

// Launcher starts Chromium-family browsers with go-rod.
type Launcher struct {
	// ChromeBin overrides the Chrome binary. Empty uses launcher.LookPath.
	ChromeBin string
	// EdgeBin is the Edge binary. Edge is unsupported when empty.
	EdgeBin string

	Logger *zap.Logger
}

// NewLauncher creates a Launcher that finds Chrome on the default paths.
func NewLauncher(logger *zap.Logger) *Launcher {
	return &Launcher{Logger: logging.OrNop(logger)}
}

func (l *Launcher) binary(kind config.BrowserKind) (string, error) {
	switch kind {
	case config.BrowserChrome:
		if l.ChromeBin != "" {
			return l.ChromeBin, nil
		}
		if path, ok := launcher.LookPath(); ok {
			return path, nil
		}
		return "", errors.New("chrome binary not found")
	case config.BrowserEdge:
		if l.EdgeBin != "" {
			return l.EdgeBin, nil
		}
	}
	return "", &browser.UnsupportedBrowserError{Engine: EngineName, Browser: kind}
}

// Launch starts the browser process, connects to it and opens a blank page.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bin, err := l.binary(opts.Browser)
	if err != nil {
		return nil, err
	}

	proc := launcher.New().Bin(bin).Headless(opts.Headless)
	controlURL, err := proc.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", opts.Browser.DisplayName(), err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		proc.Kill()
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Browser.DisplayName(), err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		proc.Kill()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	logger := logging.OrNop(l.Logger).With(zap.String("browser", string(opts.Browser)))
	logger.Debug("rod browser launched", zap.String("control_url", controlURL), zap.Bool("headless", opts.Headless))

	return &Driver{
		proc:     proc,
		browser:  b,
		page:     page,
		headless: opts.Headless,
		logger:   logger,
	}, nil
}

// Driver is a browser.Driver backed by one rod page.
type Driver struct {
	proc     *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	headless bool
	logger   *zap.Logger

	generation atomic.Int64

	mu           sync.Mutex
	implicitWait time.Duration
	closed       bool
}

func (d *Driver) state() (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.implicitWait, d.closed
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if _, closed := d.state(); closed {
		return browser.ErrDriverClosed
	}
	p := d.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	d.generation.Add(1)
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for load: %w", err)
	}
	return nil
}

func (d *Driver) FindOne(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	wait, closed := d.state()
	if closed {
		return nil, browser.ErrDriverClosed
	}
	gen := d.generation.Load()

	var (
		el  *rod.Element
		err error
	)
	if wait > 0 {
		// Element retries until the selector matches or the timeout cancels it.
		el, err = d.page.Context(ctx).Timeout(wait).Element(loc.CSS())
	} else {
		var els rod.Elements
		els, err = d.page.Context(ctx).Elements(loc.CSS())
		if err == nil && len(els) > 0 {
			el = els[0]
		}
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	if err != nil {
		return nil, translate(err)
	}
	if el == nil {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return &element{driver: d, el: el, generation: gen}, nil
}

func (d *Driver) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if _, closed := d.state(); closed {
		return nil, browser.ErrDriverClosed
	}
	gen := d.generation.Load()
	els, err := d.page.Context(ctx).Elements(loc.CSS())
	if err != nil {
		return nil, translate(err)
	}
	elements := make([]browser.Element, len(els))
	for i, el := range els {
		elements[i] = &element{driver: d, el: el, generation: gen}
	}
	return elements, nil
}

func (d *Driver) Window() browser.Window {
	return window{d}
}

func (d *Driver) SetImplicitWait(wait time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return browser.ErrDriverClosed
	}
	d.implicitWait = wait
	return nil
}

func (d *Driver) CurrentURL() string {
	if _, closed := d.state(); closed {
		return ""
	}
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

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
	err = multierr.Append(err, d.browser.Close())
	d.proc.Kill()
	d.proc.Cleanup()
	return err
}

type window struct {
	d *Driver
}

// Maximize asks the browser to maximize its window. Headless Chrome has no
// window manager, so the window is sized to the default resolution instead.
func (w window) Maximize(ctx context.Context) error {
	if _, closed := w.d.state(); closed {
		return browser.ErrDriverClosed
	}
	bounds := &proto.BrowserBounds{WindowState: proto.BrowserWindowStateMaximized}
	if w.d.headless {
		width, height := browser.DefaultViewportWidth, browser.DefaultViewportHeight
		bounds = &proto.BrowserBounds{Width: &width, Height: &height, WindowState: proto.BrowserWindowStateNormal}
	}
	return w.d.page.Context(ctx).SetWindow(bounds)
}

type element struct {
	driver     *Driver
	el         *rod.Element
	generation int64
}

func (e *element) bind(ctx context.Context) (*rod.Element, error) {
	if _, closed := e.driver.state(); closed {
		return nil, browser.ErrDriverClosed
	}
	if e.generation != e.driver.generation.Load() {
		return nil, browser.ErrStaleElement
	}
	return e.el.Context(ctx), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	el, err := e.bind(ctx)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return text, translate(err)
}

func (e *element) Click(ctx context.Context) error {
	el, err := e.bind(ctx)
	if err != nil {
		return err
	}
	before := e.driver.CurrentURL()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return translate(err)
	}
	p := e.driver.page.Context(ctx)
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for load after click: %w", err)
	}
	if e.driver.CurrentURL() != before {
		e.driver.generation.Add(1)
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	el, err := e.bind(ctx)
	if err != nil {
		return "", err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", translate(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	el, err := e.bind(ctx)
	if err != nil {
		return false, err
	}
	v, err := el.Visible()
	return v, translate(err)
}

// translate maps CDP errors for vanished nodes and contexts to
// browser.ErrStaleElement.
func translate(err error) error {
	if err == nil {
		return nil
	}
	for _, stale := range []*cdp.Error{cdp.ErrObjNotFound, cdp.ErrCtxNotFound, cdp.ErrCtxDestroyed, cdp.ErrNodeNotFoundAtPos} {
		if errors.Is(err, stale) {
			return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
		}
	}
	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
	}
	return err
}
