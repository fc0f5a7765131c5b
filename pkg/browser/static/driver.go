// Package static implements browser.Driver without a browser: pages are
// fetched over HTTP and queried with goquery. JavaScript never runs, so it
// suits server-rendered sites and tests against httptest servers.
package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/logging"
)

// EngineName identifies this engine in errors and logs.
const EngineName = "static"

// DefaultTimeout bounds each page fetch when no implicit wait is set.
const DefaultTimeout = 15 * time.Second

const userAgent = "coursecheck/1.0 (+https://github.com/entrhq/coursecheck)"

// Launcher creates static drivers. Every browser kind is accepted since no
// browser is involved.
type Launcher struct {
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	Logger *zap.Logger
}

// NewLauncher creates a Launcher using a fresh cookie-aware client per driver.
func NewLauncher(logger *zap.Logger) *Launcher {
	return &Launcher{Logger: logging.OrNop(logger)}
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		client = &http.Client{Jar: jar}
	}
	return &Driver{
		client:  client,
		timeout: DefaultTimeout,
		logger:  logging.OrNop(l.Logger).With(zap.String("browser", string(opts.Browser))),
	}, nil
}

// Driver is a browser.Driver over HTTP and goquery.
type Driver struct {
	client *http.Client
	logger *zap.Logger

	mu         sync.Mutex
	doc        *goquery.Document
	url        *url.URL
	generation int
	timeout    time.Duration
	closed     bool
}

// NewDriver returns a driver using client. A nil client gets a default one.
func NewDriver(client *http.Client) *Driver {
	if client == nil {
		client = &http.Client{}
	}
	return &Driver{client: client, timeout: DefaultTimeout, logger: zap.NewNop()}
}

func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return browser.ErrDriverClosed
	}
	base := d.url
	timeout := d.timeout
	d.mu.Unlock()

	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if base != nil {
		target = base.ResolveReference(target)
	}
	if !target.IsAbs() {
		return fmt.Errorf("invalid url %q: not absolute", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	defer resp.Body.Close()

	// Error pages still load, as they would in a browser.
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	d.logger.Debug("page loaded", zap.String("url", resp.Request.URL.String()), zap.Int("status", resp.StatusCode))

	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc = doc
	d.url = resp.Request.URL
	d.generation++
	return nil
}

func (d *Driver) find(loc browser.Locator) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, browser.ErrDriverClosed
	}
	if d.doc == nil {
		return []browser.Element{}, nil
	}
	sel := d.doc.Find(loc.CSS())
	elements := make([]browser.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &element{driver: d, sel: s, generation: d.generation})
	})
	return elements, nil
}

// FindOne does not wait: a fetched document never changes.
func (d *Driver) FindOne(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	elements, err := d.find(loc)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return elements[0], nil
}

func (d *Driver) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.find(loc)
}

func (d *Driver) Window() browser.Window {
	return window{d}
}

// SetImplicitWait bounds each page fetch, since there is nothing to wait for
// once a document is parsed. Zero keeps DefaultTimeout.
func (d *Driver) SetImplicitWait(wait time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return browser.ErrDriverClosed
	}
	if wait > 0 {
		d.timeout = wait
	}
	return nil
}

func (d *Driver) CurrentURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.url == nil {
		return "about:blank"
	}
	return d.url.String()
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.doc = nil
	d.client.CloseIdleConnections()
	return nil
}

type window struct {
	d *Driver
}

func (w window) Maximize(ctx context.Context) error {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	if w.d.closed {
		return browser.ErrDriverClosed
	}
	return nil
}

type element struct {
	driver     *Driver
	sel        *goquery.Selection
	generation int
}

func (e *element) check() error {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if e.driver.closed {
		return browser.ErrDriverClosed
	}
	if e.generation != e.driver.generation {
		return browser.ErrStaleElement
	}
	return nil
}

// Text returns the element text with whitespace runs collapsed, close to
// what a browser renders.
func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

// Click follows the link the element is, sits in, or wraps. Clicking
// anything else has no effect.
func (e *element) Click(ctx context.Context) error {
	if err := e.check(); err != nil {
		return err
	}
	link := e.sel
	if !link.Is("a") {
		link = e.sel.Closest("a")
	}
	if link.Length() == 0 {
		link = e.sel.Find("a[href]").First()
	}
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil
	}
	return e.driver.Navigate(ctx, href)
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	v, _ := e.sel.Attr(name)
	return v, nil
}

// IsVisible reports false for nodes hidden by markup: the hidden attribute,
// an inline display:none or visibility:hidden on the node or an ancestor.
func (e *element) IsVisible(ctx context.Context) (bool, error) {
	if err := e.check(); err != nil {
		return false, err
	}
	for s := e.sel; s.Length() > 0; s = s.Parent() {
		if hiddenByMarkup(s) {
			return false, nil
		}
	}
	return true, nil
}

func hiddenByMarkup(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	style, _ := s.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
