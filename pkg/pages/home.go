package pages

import (
	"context"
	"fmt"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
)

// Home is the site landing page.
type Home struct {
	driver   browser.Driver
	settings *config.Settings
}

// Open loads the home page.
func (h *Home) Open(ctx context.Context) error {
	if err := h.driver.Navigate(ctx, h.settings.HomeURL); err != nil {
		return fmt.Errorf("failed to open home page: %w", err)
	}
	return nil
}

// ClickCoursesLink follows the Courses entry of the menu.
func (h *Home) ClickCoursesLink(ctx context.Context) error {
	link, err := h.driver.FindOne(ctx, browser.CSS(h.settings.Locators.HomeCoursesLink))
	if err != nil {
		return fmt.Errorf("courses link: %w", err)
	}
	return link.Click(ctx)
}
