package driver

import (
	"fmt"

	"github.com/entrhq/coursecheck/pkg/config"
)

// RemoteUnsupportedError is returned when environment=remote is configured.
// Remote grids are not implemented.
type RemoteUnsupportedError struct {
	Browser config.BrowserKind
}

func (e *RemoteUnsupportedError) Error() string {
	return fmt.Sprintf("driver: remote environment is not supported (browser %s)", e.Browser)
}

// DriverInitError is returned when no usable browser handle could be built.
type DriverInitError struct {
	Browser config.BrowserKind
	Engine  config.EngineKind
	Err     error
}

func (e *DriverInitError) Error() string {
	return fmt.Sprintf("driver: failed to start %s with %s: %v", e.Browser.DisplayName(), e.Engine, e.Err)
}

func (e *DriverInitError) Unwrap() error {
	return e.Err
}
