// Package driver turns resolved settings into a configured browser.Driver.
package driver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/logging"
)

// headlessSupport lists which browsers can run without a window.
var headlessSupport = map[config.BrowserKind]bool{
	config.BrowserChrome:           true,
	config.BrowserFirefox:          true,
	config.BrowserEdge:             true,
	config.BrowserSafari:           false,
	config.BrowserInternetExplorer: false,
}

// SupportsHeadless reports whether kind can run headless.
func SupportsHeadless(kind config.BrowserKind) bool {
	return headlessSupport[kind]
}

// Factory creates drivers through the launcher registered for the
// configured engine.
type Factory struct {
	launchers map[config.EngineKind]browser.Launcher
	logger    *zap.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithLauncher registers l for engine, replacing any earlier registration.
func WithLauncher(engine config.EngineKind, l browser.Launcher) Option {
	return func(f *Factory) {
		f.launchers[engine] = l
	}
}

// WithLogger sets the logger used for notices.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		f.logger = logging.OrNop(logger)
	}
}

// NewFactory creates a Factory. Engines must be registered with WithLauncher.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		launchers: make(map[config.EngineKind]browser.Launcher),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds a driver for s. The environment is checked first, then the
// browser. Window maximize and the implicit wait are applied once the driver
// exists; if either fails the driver is quit and a *DriverInitError returned.
func (f *Factory) Create(ctx context.Context, s *config.Settings) (browser.Driver, error) {
	if s == nil {
		return nil, errors.New("driver: nil settings")
	}
	switch s.Environment {
	case config.EnvironmentRemote:
		return nil, &RemoteUnsupportedError{Browser: s.Browser}
	case config.EnvironmentLocal:
	default:
		return nil, fmt.Errorf("driver: unknown environment %q", s.Environment)
	}

	initErr := func(err error) error {
		return &DriverInitError{Browser: s.Browser, Engine: s.Engine, Err: err}
	}

	launcher, ok := f.launchers[s.Engine]
	if !ok {
		return nil, initErr(fmt.Errorf("no launcher registered for engine %q", s.Engine))
	}

	headless := s.Headless
	if headless && !SupportsHeadless(s.Browser) {
		f.logger.Warn(fmt.Sprintf("Headless mode not possible in %s. Running with GUI.", s.Browser.DisplayName()),
			zap.String("browser", string(s.Browser)))
		headless = false
	}

	d, err := launcher.Launch(ctx, browser.LaunchOptions{Browser: s.Browser, Headless: headless})
	if err != nil {
		return nil, initErr(err)
	}
	if d == nil {
		return nil, initErr(errors.New("launcher returned no driver"))
	}

	if err := f.applyPostConditions(ctx, d, s); err != nil {
		return nil, initErr(multierr.Append(err, d.Quit()))
	}

	f.logger.Info("browser started",
		zap.String("browser", string(s.Browser)),
		zap.String("engine", string(s.Engine)),
		zap.Bool("headless", headless),
		zap.Bool("maximized", s.WindowMaximize),
		zap.Duration("implicit_wait", s.ImplicitWait),
	)
	return d, nil
}

func (f *Factory) applyPostConditions(ctx context.Context, d browser.Driver, s *config.Settings) error {
	if s.WindowMaximize {
		if err := d.Window().Maximize(ctx); err != nil {
			return fmt.Errorf("failed to maximize window: %w", err)
		}
	}
	if err := d.SetImplicitWait(s.ImplicitWait); err != nil {
		return fmt.Errorf("failed to set implicit wait: %w", err)
	}
	return nil
}
