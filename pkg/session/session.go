// Package session owns the browser driver of one test scenario.
//
// A Session moves through Unstarted, Active and Closed exactly once. It is
// created lazily by Manager.Acquire and its driver is quit exactly once by
// Manager.Release, whatever path the scenario took. A closed session never
// comes back: every later call fails with ErrSessionClosed.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/logging"
)

var (
	// ErrSessionNotActive is returned when the driver is requested before the
	// session has started.
	ErrSessionNotActive = errors.New("session: not active")

	// ErrSessionClosed is returned for any use of a released session.
	ErrSessionClosed = errors.New("session: closed")
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUnstarted State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DriverFactory creates browser drivers. *driver.Factory implements it.
type DriverFactory interface {
	Create(ctx context.Context, s *config.Settings) (browser.Driver, error)
}

// Session holds the driver of one scenario.
type Session struct {
	// ID identifies the session in logs
	ID string

	// Settings the driver was created from
	Settings *config.Settings

	// CreatedAt is when the driver became available
	CreatedAt time.Time

	mu      sync.Mutex
	state   State
	driver  browser.Driver
	release sync.Once
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Driver returns the live driver of an active session.
func (s *Session) Driver() (browser.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateActive:
		return s.driver, nil
	case StateClosed:
		return nil, ErrSessionClosed
	default:
		return nil, ErrSessionNotActive
	}
}

// close quits the driver once and marks the session closed.
func (s *Session) close() error {
	var err error
	s.release.Do(func() {
		s.mu.Lock()
		d := s.driver
		s.state = StateClosed
		s.driver = nil
		s.mu.Unlock()
		if d != nil {
			err = d.Quit()
		}
	})
	return err
}

// Manager owns at most one Session for a scenario. Managers are not shared
// between scenarios; each concurrent scenario builds its own.
type Manager struct {
	factory  DriverFactory
	settings *config.Settings
	logger   *zap.Logger

	mu      sync.Mutex
	session *Session
	closed  bool
}

// NewManager creates a Manager that will build its driver from settings.
func NewManager(factory DriverFactory, settings *config.Settings, logger *zap.Logger) *Manager {
	return &Manager{
		factory:  factory,
		settings: settings,
		logger:   logging.OrNop(logger),
	}
}

// Acquire returns the active session, creating it on first use. It never
// creates a second driver for the same Manager, and fails with
// ErrSessionClosed once the Manager has been released.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrSessionClosed
	}
	if m.session != nil {
		return m.session, nil
	}

	id := uuid.New().String()
	s := &Session{ID: id, Settings: m.settings}

	d, err := m.factory.Create(ctx, m.settings)
	if err != nil {
		m.logger.Error("failed to create session", zap.String("session", id), zap.Error(err))
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.driver = d
	s.state = StateActive
	s.CreatedAt = time.Now()
	m.session = s

	m.logger.Debug("session started", zap.String("session", id), zap.Stringer("settings", m.settings))
	return s, nil
}

// Current returns the session without creating one. It fails with
// ErrSessionNotActive before Acquire and ErrSessionClosed after Release.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrSessionClosed
	}
	if m.session == nil {
		return nil, ErrSessionNotActive
	}
	return m.session, nil
}

// State reports the lifecycle state of the Manager's session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return StateClosed
	case m.session == nil:
		return StateUnstarted
	default:
		return StateActive
	}
}

// Release quits the driver exactly once and closes the Manager. Releasing an
// already released or never started Manager is a no-op.
func (m *Manager) Release() error {
	m.mu.Lock()
	s := m.session
	already := m.closed
	m.closed = true
	m.mu.Unlock()

	if already || s == nil {
		return nil
	}

	if err := s.close(); err != nil {
		m.logger.Warn("driver did not quit cleanly", zap.String("session", s.ID), zap.Error(err))
		return fmt.Errorf("failed to release session %s: %w", s.ID, err)
	}
	m.logger.Debug("session released", zap.String("session", s.ID))
	return nil
}

// Do acquires the session, runs fn and releases the session on every exit
// path, panics included. A release error is returned only when fn succeeded.
func (m *Manager) Do(ctx context.Context, fn func(*Session) error) (err error) {
	defer func() {
		if relErr := m.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}()

	s, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	return fn(s)
}
