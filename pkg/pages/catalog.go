package pages

import (
	"context"
	"fmt"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
)

// Catalog is the page listing every course.
type Catalog struct {
	driver   browser.Driver
	settings *config.Settings
}

// URL returns the address of the course list.
func (c *Catalog) URL() string {
	return c.settings.CoursesURL
}

// Open loads the course list.
func (c *Catalog) Open(ctx context.Context) error {
	if err := c.driver.Navigate(ctx, c.settings.CoursesURL); err != nil {
		return fmt.Errorf("failed to open course list: %w", err)
	}
	return nil
}

// CourseFields queries the course-field elements of the current document.
// Professor rows are interleaved with course rows in the result. The
// elements are only valid until the next navigation.
func (c *Catalog) CourseFields(ctx context.Context) ([]browser.Element, error) {
	return c.driver.FindAll(ctx, browser.CSS(c.settings.Locators.CourseField))
}
