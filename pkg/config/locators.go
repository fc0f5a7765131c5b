package config

import (
	"strings"
)

// LocatorPrefix introduces selector overrides in the configuration map,
// e.g. "locator.courseField = div.views-field".
const LocatorPrefix = "locator."

// Locators holds the CSS selectors the page objects query. The defaults match
// the Ansymo course site; any of them can be overridden from configuration.
type Locators struct {
	HomeCoursesLink  string
	CourseField      string
	DetailsTitle     string
	DetailsProfessor string
	DetailsReady     string
	AssignmentLinks  string
	Groups           string
	GroupDates       string
	GroupPresenters  string
	GroupOpponents   string
}

const subjectContent = "html > body > div > div:nth-of-type(3) > div > div:nth-of-type(2) > div > div:nth-of-type(1) > div > div:nth-of-type(3)"

// DefaultLocators returns the selectors for the Ansymo course site.
func DefaultLocators() Locators {
	return Locators{
		HomeCoursesLink:  "a[title='Courses']",
		CourseField:      "div.views-field",
		DetailsTitle:     "h1",
		DetailsProfessor: "#content > div.buildmode-full > div > div.nd-region-middle-wrapper.nd-no-sidebars > div > div.field.field-professor-linked > a",
		DetailsReady:     "body",
		AssignmentLinks:  subjectContent + " > ul:nth-of-type(6) > li > a",
		Groups:           subjectContent + " > ul:nth-of-type(7) > ul",
		GroupDates:       subjectContent + " > ul:nth-of-type(7) > ul > li:nth-of-type(1)",
		GroupPresenters:  subjectContent + " > ul:nth-of-type(7) > ul > li:nth-of-type(2)",
		GroupOpponents:   subjectContent + " > ul:nth-of-type(7) > ul > li:nth-of-type(3)",
	}
}

func (l *Locators) fields() map[string]*string {
	return map[string]*string{
		"homeCoursesLink":  &l.HomeCoursesLink,
		"courseField":      &l.CourseField,
		"detailsTitle":     &l.DetailsTitle,
		"detailsProfessor": &l.DetailsProfessor,
		"detailsReady":     &l.DetailsReady,
		"assignmentLinks":  &l.AssignmentLinks,
		"groups":           &l.Groups,
		"groupDates":       &l.GroupDates,
		"groupPresenters":  &l.GroupPresenters,
		"groupOpponents":   &l.GroupOpponents,
	}
}

func resolveLocators(values map[string]string) (Locators, error) {
	l := DefaultLocators()
	fields := l.fields()
	for key, raw := range values {
		name, ok := strings.CutPrefix(key, LocatorPrefix)
		if !ok {
			continue
		}
		dest, known := fields[name]
		if !known {
			return l, &ConfigError{Key: key, Value: raw, Reason: "unknown locator"}
		}
		v := strings.TrimSpace(raw)
		if v == "" {
			return l, &ConfigError{Key: key, Reason: "locator must not be empty"}
		}
		*dest = v
	}
	return l, nil
}
