package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/browser"
	"github.com/entrhq/coursecheck/pkg/logging"
	"github.com/entrhq/coursecheck/pkg/pages"
)

// ProfessorMarker marks professor rows in the course list.
const ProfessorMarker = "Professor:"

// DefaultLoadTimeout bounds the wait for a course page to become ready.
const DefaultLoadTimeout = 10 * time.Second

var errNotLoaded = errors.New("page not loaded yet")

// CatalogPages gives the verifier its page objects. *pages.Cache implements it.
type CatalogPages interface {
	Catalog() (*pages.Catalog, error)
	FreshCourseDetails() (*pages.DetailsPage, error)
}

// CourseRecord is the outcome of visiting one course.
type CourseRecord struct {
	Title      string
	Professors []string
	Loaded     bool
}

// CatalogResult aggregates the course visits of VerifyAll.
type CatalogResult struct {
	Records     []CourseRecord
	NotLoaded   []string
	NoProfessor []string
}

// Err returns an *AssertionFailure describing every failed course, or nil.
func (r CatalogResult) Err() error {
	return Fail(joinSentences(NotLoadedMessage(r.NotLoaded), NoProfessorMessage(r.NoProfessor)))
}

// CatalogVerifier checks that every listed course has a working page that
// names a professor.
type CatalogVerifier struct {
	pages       CatalogPages
	logger      *zap.Logger
	loadTimeout time.Duration
	interval    time.Duration
}

// CatalogOption configures a CatalogVerifier.
type CatalogOption func(*CatalogVerifier)

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) CatalogOption {
	return func(v *CatalogVerifier) {
		v.loadTimeout = d
	}
}

// WithPollInterval sets the first readiness poll interval. Later polls back
// off exponentially.
func WithPollInterval(d time.Duration) CatalogOption {
	return func(v *CatalogVerifier) {
		v.interval = d
	}
}

// NewCatalogVerifier creates a verifier over p.
func NewCatalogVerifier(p CatalogPages, logger *zap.Logger, opts ...CatalogOption) *CatalogVerifier {
	v := &CatalogVerifier{
		pages:       p,
		logger:      logging.OrNop(logger),
		loadTimeout: DefaultLoadTimeout,
		interval:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ListCourses returns the course rows of the current document, skipping the
// professor rows interleaved with them.
func (v *CatalogVerifier) ListCourses(ctx context.Context) ([]browser.Element, error) {
	catalog, err := v.pages.Catalog()
	if err != nil {
		return nil, err
	}
	fields, err := catalog.CourseFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	courses := make([]browser.Element, 0, len(fields))
	for _, field := range fields {
		text, err := field.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read course row: %w", err)
		}
		if strings.Contains(text, ProfessorMarker) {
			continue
		}
		courses = append(courses, field)
	}
	return courses, nil
}

// AreCoursesListed reports whether the current document lists any course.
func (v *CatalogVerifier) AreCoursesListed(ctx context.Context) (bool, error) {
	courses, err := v.ListCourses(ctx)
	if err != nil {
		return false, err
	}
	return len(courses) > 0, nil
}

// VerifyAll opens every course listed on the current document in turn. The
// course count is taken once; the list is queried again before each click
// because the previous elements went stale when the driver navigated away.
// Load timeouts and missing professors are collected in the result. The
// returned error is reserved for failures that stop the walk.
func (v *CatalogVerifier) VerifyAll(ctx context.Context) (CatalogResult, error) {
	var result CatalogResult

	catalog, err := v.pages.Catalog()
	if err != nil {
		return result, err
	}

	initial, err := v.ListCourses(ctx)
	if err != nil {
		return result, err
	}
	total := len(initial)
	v.logger.Info("verifying courses", zap.Int("count", total))

	for i := 0; i < total; i++ {
		courses, err := v.ListCourses(ctx)
		if err != nil {
			return result, err
		}
		if i >= len(courses) {
			return result, fmt.Errorf("course list changed: expected %d courses, found %d", total, len(courses))
		}

		record, err := v.visit(ctx, courses[i])
		if err != nil {
			return result, err
		}
		result.Records = append(result.Records, record)
		switch {
		case !record.Loaded:
			result.NotLoaded = append(result.NotLoaded, record.Title)
		case len(record.Professors) == 0:
			result.NoProfessor = append(result.NoProfessor, record.Title)
		}

		if err := catalog.Open(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (v *CatalogVerifier) visit(ctx context.Context, course browser.Element) (CourseRecord, error) {
	var record CourseRecord

	title, err := course.Text(ctx)
	if err != nil {
		return record, fmt.Errorf("failed to read course title: %w", err)
	}
	record.Title = title
	logger := v.logger.With(zap.String("course", title))

	if err := course.Click(ctx); err != nil {
		return record, fmt.Errorf("failed to open course %q: %w", title, err)
	}

	details, err := v.pages.FreshCourseDetails()
	if err != nil {
		return record, err
	}

	if err := v.waitLoaded(ctx, details, title); err != nil {
		var timeout *LoadTimeoutError
		if errors.As(err, &timeout) {
			logger.Warn("course page not loaded", zap.Duration("timeout", timeout.Timeout))
			return record, nil
		}
		return record, err
	}
	record.Loaded = true

	record.Professors, err = details.Professors(ctx)
	if err != nil {
		return record, fmt.Errorf("failed to read professors of %q: %w", title, err)
	}
	logger.Info("course visited", zap.Strings("professors", record.Professors))
	return record, nil
}

// waitLoaded polls the readiness condition with exponential backoff until it
// holds or the load timeout passes.
func (v *CatalogVerifier) waitLoaded(ctx context.Context, details *pages.DetailsPage, title string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = v.interval
	b.MaxInterval = time.Second
	b.MaxElapsedTime = v.loadTimeout

	err := backoff.Retry(func() error {
		loaded, err := details.IsLoaded(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !loaded {
			return errNotLoaded
		}
		return nil
	}, backoff.WithContext(b, ctx))

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errNotLoaded):
		return &LoadTimeoutError{Course: title, Timeout: v.loadTimeout}
	default:
		return fmt.Errorf("failed to check readiness of %q: %w", title, err)
	}
}
