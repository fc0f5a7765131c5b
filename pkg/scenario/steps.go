package scenario

import (
	"context"
	"fmt"

	"github.com/entrhq/coursecheck/pkg/verify"
)

func openHome(ctx context.Context, w *World) error {
	home, err := w.Pages.Home()
	if err != nil {
		return err
	}
	return home.Open(ctx)
}

func clickCourses(ctx context.Context, w *World) error {
	home, err := w.Pages.Home()
	if err != nil {
		return err
	}
	return home.ClickCoursesLink(ctx)
}

func coursesListed(ctx context.Context, w *World) error {
	listed, err := w.Catalog.AreCoursesListed(ctx)
	if err != nil {
		return err
	}
	if !listed {
		return verify.Fail("There are no courses.")
	}
	return nil
}

func verifyEachCourse(ctx context.Context, w *World) error {
	result, err := w.Catalog.VerifyAll(ctx)
	if err != nil {
		return err
	}
	return result.Err()
}

func openSubject(ctx context.Context, w *World) error {
	subject, err := w.Pages.Subject()
	if err != nil {
		return err
	}
	return subject.Open(ctx)
}

func assignmentLinksPresent(ctx context.Context, w *World) error {
	links, err := w.Assignments.List(ctx)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return verify.Fail("There are no assignment links.")
	}
	return nil
}

// warnMissingLinks only warns. With document checks enabled it also
// validates what the existing links serve.
func warnMissingLinks(ctx context.Context, w *World) error {
	if _, err := w.Assignments.VerifyExistence(ctx); err != nil {
		return err
	}
	if w.CheckDocuments {
		if _, err := w.Assignments.VerifyDocuments(ctx); err != nil {
			return err
		}
	}
	return nil
}

func verifyLinkFormat(ctx context.Context, w *World) error {
	malformed, err := w.Assignments.VerifyFormat(ctx)
	if err != nil {
		return err
	}
	return verify.Fail(verify.LinkFormatMessage(malformed))
}

func provideStudentGroup(ctx context.Context, w *World) error {
	if err := w.Groups.Load(ctx); err != nil {
		return err
	}
	return w.Groups.Provide(w.Student.Name, w.Student.Group)
}

func provideStudent(ctx context.Context, w *World) error {
	if err := w.Groups.Load(ctx); err != nil {
		return err
	}
	return w.Groups.Provide(w.Student.Name, "0")
}

func studentInAnyGroup(ctx context.Context, w *World) error {
	in, err := w.Groups.InAnyGroup()
	if err != nil {
		return err
	}
	if !in {
		return verify.Fail("The student is not in any group.")
	}
	return nil
}

func warnClaimedGroup(ctx context.Context, w *World) error {
	q, _ := w.Groups.Query()
	_, err := w.Groups.VerifyClaimedGroup(q.ClaimedGroup)
	return err
}

// presenceAs reports the date the student attends in role. A student without
// that role gets a note instead of a failure.
func presenceAs(role verify.Role) func(context.Context, *World) error {
	return func(ctx context.Context, w *World) error {
		if err := studentInAnyGroup(ctx, w); err != nil {
			return err
		}
		q, _ := w.Groups.Query()
		m, err := w.Groups.ResolveGroups(q.Name)
		if err != nil {
			return err
		}
		if m.Group(role) == 0 {
			w.Note(fmt.Sprintf("The student %s has no %s role.", q.Name, role))
			return nil
		}
		msg, err := w.Groups.PresenceMessage(role)
		if err != nil {
			return err
		}
		w.Note(msg)
		return nil
	}
}
