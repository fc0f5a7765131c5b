// Package browsertest provides an in-memory browser.Driver for tests.
//
// A Site maps URLs to Pages and each Page maps CSS selectors to the nodes
// that selector returns. Selectors are matched literally; nothing is parsed.
// Navigation invalidates every element handed out before it, so code that
// holds elements across a navigation fails with browser.ErrStaleElement just
// as it would against a real browser.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/coursecheck/pkg/browser"
)

// Node is one element on a fake page.
type Node struct {
	Text   string
	Attrs  map[string]string
	Hidden bool

	// Href, when set, is loaded by Click.
	Href string
}

// Page is the content served for one URL.
type Page struct {
	// Nodes lists, per selector, the nodes FindAll returns in document order.
	Nodes map[string][]Node

	// LoadAfter hides every node from the first LoadAfter lookups after the
	// page is loaded, simulating a page that is still rendering.
	LoadAfter int

	// StaleLookups makes the first StaleLookups lookups after the page is
	// loaded fail with browser.ErrStaleElement.
	StaleLookups int
}

// Site maps absolute URLs to pages. Unknown URLs load an empty page.
type Site map[string]*Page

// Driver is an in-memory browser.Driver.
type Driver struct {
	mu sync.Mutex

	site       Site
	url        string
	page       *Page
	generation int
	lookups    int

	implicitWait time.Duration
	maximized    bool
	quit         int
	visited      []string
	events       []string

	// MaximizeErr is returned by Window().Maximize when set.
	MaximizeErr error
	// QuitErr is returned by Quit when set.
	QuitErr error
}

// NewDriver returns a driver on about:blank serving site.
func NewDriver(site Site) *Driver {
	return &Driver{site: site, url: "about:blank", page: &Page{}}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit > 0 {
		return browser.ErrDriverClosed
	}
	d.load(url)
	return nil
}

// load replaces the current page. Caller holds d.mu.
func (d *Driver) load(url string) {
	page, ok := d.site[url]
	if !ok {
		page = &Page{}
	}
	d.url = url
	d.page = page
	d.generation++
	d.lookups = 0
	d.visited = append(d.visited, url)
	d.events = append(d.events, "navigate "+url)
}

// query resolves loc on the current page. Caller holds d.mu.
func (d *Driver) query(loc browser.Locator) ([]browser.Element, error) {
	if d.quit > 0 {
		return nil, browser.ErrDriverClosed
	}
	d.lookups++
	if d.lookups <= d.page.StaleLookups {
		return nil, browser.ErrStaleElement
	}
	if d.lookups <= d.page.StaleLookups+d.page.LoadAfter {
		return nil, nil
	}
	nodes := d.page.Nodes[loc.CSS()]
	elements := make([]browser.Element, len(nodes))
	for i := range nodes {
		elements[i] = &element{driver: d, generation: d.generation, node: nodes[i]}
	}
	return elements, nil
}

func (d *Driver) FindOne(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	elements, err := d.query(loc)
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
	d.mu.Lock()
	defer d.mu.Unlock()
	elements, err := d.query(loc)
	if err != nil {
		return nil, err
	}
	if elements == nil {
		elements = []browser.Element{}
	}
	return elements, nil
}

func (d *Driver) Window() browser.Window {
	return window{d}
}

func (d *Driver) SetImplicitWait(wait time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit > 0 {
		return browser.ErrDriverClosed
	}
	d.implicitWait = wait
	d.events = append(d.events, "implicit-wait "+wait.String())
	return nil
}

func (d *Driver) CurrentURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Quit marks the driver closed. Every call is counted so tests can assert
// teardown ran exactly once.
func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quit++
	d.events = append(d.events, "quit")
	return d.QuitErr
}

// QuitCalls returns how many times Quit was called.
func (d *Driver) QuitCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit
}

// Maximized reports whether the window was maximized.
func (d *Driver) Maximized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maximized
}

// ImplicitWait returns the last implicit wait set.
func (d *Driver) ImplicitWait() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.implicitWait
}

// Visited returns every URL loaded, in order.
func (d *Driver) Visited() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.visited...)
}

// Events returns the driver calls in the order they happened.
func (d *Driver) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

type window struct {
	d *Driver
}

func (w window) Maximize(ctx context.Context) error {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	if w.d.quit > 0 {
		return browser.ErrDriverClosed
	}
	if w.d.MaximizeErr != nil {
		return w.d.MaximizeErr
	}
	w.d.maximized = true
	w.d.events = append(w.d.events, "maximize")
	return nil
}

type element struct {
	driver     *Driver
	generation int
	node       Node
}

// check fails when the page the element came from is gone. Caller holds the
// driver lock.
func (e *element) check() error {
	if e.driver.quit > 0 {
		return browser.ErrDriverClosed
	}
	if e.generation != e.driver.generation {
		return browser.ErrStaleElement
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.check(); err != nil {
		return "", err
	}
	return e.node.Text, nil
}

func (e *element) Click(ctx context.Context) error {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	if e.node.Href != "" {
		e.driver.load(e.node.Href)
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.check(); err != nil {
		return "", err
	}
	if v, ok := e.node.Attrs[name]; ok {
		return v, nil
	}
	if name == "href" {
		return e.node.Href, nil
	}
	return "", nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.check(); err != nil {
		return false, err
	}
	return !e.node.Hidden, nil
}

// Launcher hands out Drivers over a shared Site and records every launch.
type Launcher struct {
	mu sync.Mutex

	Site Site
	// Err, when set, fails every launch.
	Err error
	// NilDriver makes Launch return (nil, nil).
	NilDriver bool

	launches []browser.LaunchOptions
	drivers  []*Driver
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Driver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches = append(l.launches, opts)
	if l.Err != nil {
		return nil, l.Err
	}
	if l.NilDriver {
		return nil, nil
	}
	d := NewDriver(l.Site)
	l.drivers = append(l.drivers, d)
	return d, nil
}

// Launches returns the options of every Launch call.
func (l *Launcher) Launches() []browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]browser.LaunchOptions(nil), l.launches...)
}

// Drivers returns every driver launched so far.
func (l *Launcher) Drivers() []*Driver {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Driver(nil), l.drivers...)
}
