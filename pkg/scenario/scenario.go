// Package scenario runs the acceptance scenarios against the course site.
//
// Each scenario is a list of steps sharing a World. The Runner gives every
// scenario its own session and page cache, runs the steps in order and always
// releases the browser afterwards.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/pages"
	"github.com/entrhq/coursecheck/pkg/session"
	"github.com/entrhq/coursecheck/pkg/verify"
)

// Status is the result of one scenario.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusErrored
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome records how a scenario ended.
type Outcome struct {
	Name   string
	Status Status
	// Step is the text of the step that ended the scenario early.
	Step string
	// Message is the assertion message of a failed scenario or the error of
	// an errored one.
	Message  string
	Err      error
	Warnings []string
	Notes    []string
	Duration time.Duration
}

// Student is the student a group scenario asks about.
type Student struct {
	Name  string
	Group string
}

// World is the state shared by the steps of one scenario.
type World struct {
	Settings *config.Settings
	Session  *session.Manager
	Pages    *pages.Cache
	Logger   *zap.Logger
	Student  Student

	// CheckDocuments also validates the documents behind assignment links.
	CheckDocuments bool

	Catalog     *verify.CatalogVerifier
	Assignments *verify.AssignmentVerifier
	Groups      *verify.GroupResolver

	notes []string
}

// Note logs msg and keeps it for the scenario outcome.
func (w *World) Note(msg string) {
	w.Logger.Info(msg)
	w.notes = append(w.notes, msg)
}

// Step is one action or check of a scenario.
type Step struct {
	Text string
	Run  func(ctx context.Context, w *World) error
}

// Scenario is a named list of steps.
type Scenario struct {
	Name         string
	NeedsStudent bool
	Steps        []Step
}

// Scenarios returns every scenario in run order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name: "Browse courses",
			Steps: []Step{
				{"the user is on the Ansymo homepage", openHome},
				{`the user clicks the "Courses" link in the menu section`, clickCourses},
				{"the user should see a page with all the courses listed", coursesListed},
				{"for each course, there should be a page that is loaded and there should be a professor", verifyEachCourse},
			},
		},
		{
			Name: "Verify assignment links",
			Steps: []Step{
				{"the user is on the Software Testing course page", openSubject},
				{"the user sees the links for each assignment", assignmentLinksPresent},
				{"the user should receive a warning when an assignment link doesn't exist", warnMissingLinks},
				{"the user should verify the link format of each assignment link", verifyLinkFormat},
			},
		},
		{
			Name:         "Verify student groups",
			NeedsStudent: true,
			Steps: []Step{
				{"the user is on the Software Testing course page", openSubject},
				{"the user says that a student belongs to a student group", provideStudentGroup},
				{"the user should be in a student group", studentInAnyGroup},
				{"the user should receive a warning when he does not belong to that student group number", warnClaimedGroup},
			},
		},
		{
			Name:         "Verify mandatory presence",
			NeedsStudent: true,
			Steps: []Step{
				{"the user is on the Software Testing course page", openSubject},
				{"the user says a student", provideStudent},
				{"the user should see his mandatory presence as presenter", presenceAs(verify.RolePresenter)},
				{"the user should see his mandatory presence as opponent", presenceAs(verify.RoleOpponent)},
			},
		},
	}
}

// ErrNoScenarios is returned when a pattern selects nothing.
var ErrNoScenarios = errors.New("scenario: no scenario matches")

// Select returns the scenarios whose name matches the glob pattern. An empty
// pattern selects every scenario.
func Select(pattern string) ([]Scenario, error) {
	all := Scenarios()
	if pattern == "" {
		return all, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario pattern %q: %w", pattern, err)
	}

	var selected []Scenario
	for _, sc := range all {
		if g.Match(sc.Name) {
			selected = append(selected, sc)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoScenarios, pattern)
	}
	return selected, nil
}
