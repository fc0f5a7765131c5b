package pages

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/config"
)

// DetailsPage reads a course detail page: readiness, title and professors.
// It is embedded by SubjectPage.
type DetailsPage struct {
	driver   browser.Driver
	locators config.Locators
}

// IsLoaded reports whether the readiness element is present and visible. A
// missing or stale element means "not yet", not an error.
func (p *DetailsPage) IsLoaded(ctx context.Context) (bool, error) {
	el, err := p.driver.FindOne(ctx, browser.CSS(p.locators.DetailsReady))
	if err != nil {
		return false, notYet(err)
	}
	visible, err := el.IsVisible(ctx)
	if err != nil {
		return false, notYet(err)
	}
	return visible, nil
}

func notYet(err error) error {
	if errors.Is(err, browser.ErrNoSuchElement) || errors.Is(err, browser.ErrStaleElement) {
		return nil
	}
	return err
}

// Title returns the course title.
func (p *DetailsPage) Title(ctx context.Context) (string, error) {
	el, err := p.driver.FindOne(ctx, browser.CSS(p.locators.DetailsTitle))
	if err != nil {
		return "", fmt.Errorf("course title: %w", err)
	}
	return el.Text(ctx)
}

// Professors returns the names of every professor listed. An empty result
// means the course names no professor.
func (p *DetailsPage) Professors(ctx context.Context) ([]string, error) {
	return texts(ctx, p.driver, browser.CSS(p.locators.DetailsProfessor))
}

func texts(ctx context.Context, d browser.Driver, loc browser.Locator) ([]string, error) {
	elements, err := d.FindAll(ctx, loc)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}
