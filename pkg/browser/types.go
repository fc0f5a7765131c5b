package browser

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/coursecheck/pkg/config"
)

var (
	// ErrNoSuchElement is returned when a locator matches nothing.
	ErrNoSuchElement = errors.New("browser: no such element")

	// ErrStaleElement is returned when an element is used after the page it
	// was found on has been replaced by a navigation.
	ErrStaleElement = errors.New("browser: stale element reference")

	// ErrDriverClosed is returned by every Driver method after Quit.
	ErrDriverClosed = errors.New("browser: driver closed")
)

// Locator identifies elements on a page. Only CSS selectors are supported.
type Locator struct {
	css string
}

// CSS returns a locator for the given CSS selector.
func CSS(selector string) Locator {
	return Locator{css: selector}
}

// CSS returns the selector text.
func (l Locator) CSS() string {
	return l.css
}

func (l Locator) String() string {
	return "css=" + l.css
}

// Driver drives a single browser page.
type Driver interface {
	// Navigate loads url in the current page.
	Navigate(ctx context.Context, url string) error

	// FindOne returns the first element matching loc, waiting up to the
	// implicit wait for it to appear.
	FindOne(ctx context.Context, loc Locator) (Element, error)

	// FindAll returns every element matching loc in document order.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)

	// Window exposes window-level operations.
	Window() Window

	// SetImplicitWait sets the element lookup timeout.
	SetImplicitWait(d time.Duration) error

	// CurrentURL returns the URL of the loaded page.
	CurrentURL() string

	// Quit closes the browser and releases its resources.
	Quit() error
}

// Element is a handle to one DOM node.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)

	// Click clicks the element, following links where the engine supports it.
	Click(ctx context.Context) error

	// Attribute returns the value of the named attribute, or "" if absent.
	Attribute(ctx context.Context, name string) (string, error)

	// IsVisible reports whether the element is displayed.
	IsVisible(ctx context.Context) (bool, error)
}

// Window controls the browser window.
type Window interface {
	Maximize(ctx context.Context) error
}

// LaunchOptions configures a new Driver.
type LaunchOptions struct {
	// Browser selects the browser product to launch
	Browser config.BrowserKind

	// Headless controls whether the browser runs without a visible window
	Headless bool
}

// Launcher starts a browser with a specific automation engine.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Driver, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, opts LaunchOptions) (Driver, error)

// Launch calls f(ctx, opts).
func (f LauncherFunc) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	return f(ctx, opts)
}

// UnsupportedBrowserError is returned by a Launcher that cannot drive the
// requested browser.
type UnsupportedBrowserError struct {
	Engine  string
	Browser config.BrowserKind
}

func (e *UnsupportedBrowserError) Error() string {
	return "browser: engine " + e.Engine + " cannot drive " + e.Browser.DisplayName()
}

// Default window geometry used when maximizing in engines that have no
// native window (headless or viewport-based).
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)
