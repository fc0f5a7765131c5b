package pages

import (
	"sync"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/session"
)

// SessionSource yields the active session. *session.Manager implements it.
type SessionSource interface {
	Current() (*session.Session, error)
}

// Cache hands out page objects bound to the active session's driver. It
// belongs to one scenario and must not be shared.
type Cache struct {
	source SessionSource

	mu      sync.Mutex
	bound   *session.Session
	home    *Home
	catalog *Catalog
	subject *SubjectPage
}

// NewCache creates a cache over source.
func NewCache(source SessionSource) *Cache {
	return &Cache{source: source}
}

// active returns the current session and its driver, dropping cached pages
// bound to an earlier session. Caller holds c.mu.
func (c *Cache) active() (*session.Session, browser.Driver, error) {
	s, err := c.source.Current()
	if err != nil {
		return nil, nil, err
	}
	d, err := s.Driver()
	if err != nil {
		return nil, nil, err
	}
	if c.bound != s {
		c.bound = s
		c.home, c.catalog, c.subject = nil, nil, nil
	}
	return s, d, nil
}

// Home returns the cached home page.
func (c *Cache) Home() (*Home, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, d, err := c.active()
	if err != nil {
		return nil, err
	}
	if c.home == nil {
		c.home = &Home{driver: d, settings: s.Settings}
	}
	return c.home, nil
}

// Catalog returns the cached course list page.
func (c *Cache) Catalog() (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, d, err := c.active()
	if err != nil {
		return nil, err
	}
	if c.catalog == nil {
		c.catalog = &Catalog{driver: d, settings: s.Settings}
	}
	return c.catalog, nil
}

// Subject returns the cached subject page.
func (c *Cache) Subject() (*SubjectPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, d, err := c.active()
	if err != nil {
		return nil, err
	}
	if c.subject == nil {
		c.subject = &SubjectPage{
			DetailsPage: DetailsPage{driver: d, locators: s.Settings.Locators},
			settings:    s.Settings,
		}
	}
	return c.subject, nil
}

// FreshCourseDetails returns a new detail page for the document currently
// loaded. It is never cached.
func (c *Cache) FreshCourseDetails() (*DetailsPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, d, err := c.active()
	if err != nil {
		return nil, err
	}
	return &DetailsPage{driver: d, locators: s.Settings.Locators}, nil
}
