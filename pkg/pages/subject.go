package pages

import (
	"context"
	"fmt"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
)

// SubjectPage is the detail page of the course under test. It adds the
// assignment links and the presentation group listing to DetailsPage.
type SubjectPage struct {
	DetailsPage

	settings *config.Settings
}

// URL returns the address of the subject page.
func (p *SubjectPage) URL() string {
	return p.settings.SubjectURL
}

// Open loads the subject page.
func (p *SubjectPage) Open(ctx context.Context) error {
	if err := p.driver.Navigate(ctx, p.settings.SubjectURL); err != nil {
		return fmt.Errorf("failed to open subject page: %w", err)
	}
	return nil
}

// LinkElements returns every link in the assignment list, resource links
// included.
func (p *SubjectPage) LinkElements(ctx context.Context) ([]browser.Element, error) {
	return p.driver.FindAll(ctx, browser.CSS(p.locators.AssignmentLinks))
}

// GroupListing is the raw text of the presentation groups, one entry per
// group in page order for each of the three parallel collections.
type GroupListing struct {
	Count      int
	Dates      []string
	Presenters []string
	Opponents  []string
}

// GroupListing reads the group collections of the current document.
func (p *SubjectPage) GroupListing(ctx context.Context) (GroupListing, error) {
	var listing GroupListing

	groups, err := p.driver.FindAll(ctx, browser.CSS(p.locators.Groups))
	if err != nil {
		return listing, fmt.Errorf("groups: %w", err)
	}
	listing.Count = len(groups)

	if listing.Dates, err = texts(ctx, p.driver, browser.CSS(p.locators.GroupDates)); err != nil {
		return listing, fmt.Errorf("group dates: %w", err)
	}
	if listing.Presenters, err = texts(ctx, p.driver, browser.CSS(p.locators.GroupPresenters)); err != nil {
		return listing, fmt.Errorf("group presenters: %w", err)
	}
	if listing.Opponents, err = texts(ctx, p.driver, browser.CSS(p.locators.GroupOpponents)); err != nil {
		return listing, fmt.Errorf("group opponents: %w", err)
	}
	return listing, nil
}
