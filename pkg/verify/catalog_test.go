package verify

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/entrhq/coursecheck/pkg/browser/browsertest"
	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/driver"
	"github.com/entrhq/coursecheck/pkg/pages"
	"github.com/entrhq/coursecheck/pkg/session"
)

const (
	homeURL    = "http://site/"
	coursesURL = "http://site/courses"
	subjectURL = "http://site/courses/software-testing"
)

var loc = config.DefaultLocators()

// harness is an acquired session over a fake site with its page cache.
type harness struct {
	cache    *pages.Cache
	launcher *browsertest.Launcher
	logger   *zap.Logger
	logs     *observer.ObservedLogs
}

func newHarness(t *testing.T, site browsertest.Site, subject string) *harness {
	t.Helper()
	s := &config.Settings{
		Browser:      config.BrowserChrome,
		Environment:  config.EnvironmentLocal,
		Engine:       config.EngineStatic,
		ImplicitWait: time.Second,
		HomeURL:      homeURL,
		CoursesURL:   coursesURL,
		SubjectURL:   subject,
		Locators:     loc,
	}
	l := &browsertest.Launcher{Site: site}
	m := session.NewManager(driver.NewFactory(driver.WithLauncher(config.EngineStatic, l)), s, nil)
	t.Cleanup(func() { _ = m.Release() })
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	return &harness{cache: pages.NewCache(m), launcher: l, logger: zap.New(core), logs: logs}
}

func (h *harness) warnings() []string {
	var out []string
	for _, e := range h.logs.FilterLevelExact(zapcore.WarnLevel).All() {
		out = append(out, e.Message)
	}
	return out
}

func course(title, href string) browsertest.Node {
	return browsertest.Node{Text: title, Href: href}
}

func professorRow(name string) browsertest.Node {
	return browsertest.Node{Text: "Professor: " + name}
}

func catalogSite() browsertest.Site {
	return browsertest.Site{
		coursesURL: {Nodes: map[string][]browsertest.Node{
			loc.CourseField: {
				course("Algorithms", "http://site/courses/algorithms"),
				professorRow("A. Smith"),
				course("Testing", "http://site/courses/testing"),
				course("Compilers", "http://site/courses/compilers"),
				professorRow("C. Lattner"),
			},
		}},
		"http://site/courses/algorithms": {Nodes: map[string][]browsertest.Node{
			loc.DetailsReady:     {{}},
			loc.DetailsProfessor: {{Text: "A. Smith"}},
		}},
		"http://site/courses/testing": {Nodes: map[string][]browsertest.Node{
			loc.DetailsReady: {{Hidden: true}},
		}},
		"http://site/courses/compilers": {
			LoadAfter:    2,
			StaleLookups: 1,
			Nodes: map[string][]browsertest.Node{
				loc.DetailsReady:     {{}},
				loc.DetailsProfessor: {{Text: "C. Lattner"}, {Text: "D. Ritchie"}},
			},
		},
	}
}

func openCatalog(t *testing.T, h *harness) {
	t.Helper()
	catalog, err := h.cache.Catalog()
	require.NoError(t, err)
	require.NoError(t, catalog.Open(context.Background()))
}

func TestCatalogVerifier_ListCoursesSkipsProfessorRows(t *testing.T) {
	h := newHarness(t, catalogSite(), subjectURL)
	openCatalog(t, h)
	v := NewCatalogVerifier(h.cache, h.logger)

	courses, err := v.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 3)

	listed, err := v.AreCoursesListed(context.Background())
	require.NoError(t, err)
	assert.True(t, listed)
}

func TestCatalogVerifier_NoCourses(t *testing.T) {
	h := newHarness(t, browsertest.Site{}, subjectURL)
	openCatalog(t, h)
	v := NewCatalogVerifier(h.cache, h.logger)

	listed, err := v.AreCoursesListed(context.Background())
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestCatalogVerifier_VerifyAll(t *testing.T) {
	h := newHarness(t, catalogSite(), subjectURL)
	openCatalog(t, h)
	v := NewCatalogVerifier(h.cache, h.logger,
		WithLoadTimeout(100*time.Millisecond),
		WithPollInterval(time.Millisecond))

	result, err := v.VerifyAll(context.Background())
	require.NoError(t, err)

	want := []CourseRecord{
		{Title: "Algorithms", Professors: []string{"A. Smith"}, Loaded: true},
		{Title: "Testing"},
		{Title: "Compilers", Professors: []string{"C. Lattner", "D. Ritchie"}, Loaded: true},
	}
	if diff := cmp.Diff(want, result.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Testing"}, result.NotLoaded)
	assert.Empty(t, result.NoProfessor)
	assert.EqualError(t, result.Err(), "The page of the course Testing has not loaded successfully.")
	assert.Contains(t, h.warnings(), "course page not loaded")

	visited := h.launcher.Drivers()[0].Visited()
	assert.Equal(t, []string{
		coursesURL,
		"http://site/courses/algorithms", coursesURL,
		"http://site/courses/testing", coursesURL,
		"http://site/courses/compilers", coursesURL,
	}, visited, "the catalog is reopened after every course")
}

func TestCatalogVerifier_MissingProfessor(t *testing.T) {
	site := browsertest.Site{
		coursesURL: {Nodes: map[string][]browsertest.Node{
			loc.CourseField: {course("Databases", "http://site/courses/databases")},
		}},
		"http://site/courses/databases": {Nodes: map[string][]browsertest.Node{
			loc.DetailsReady: {{}},
		}},
	}
	h := newHarness(t, site, subjectURL)
	openCatalog(t, h)
	v := NewCatalogVerifier(h.cache, h.logger)

	result, err := v.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Databases"}, result.NoProfessor)
	assert.EqualError(t, result.Err(), "The course Databases does not have a professor.")
}

func TestCatalogVerifier_CanceledContext(t *testing.T) {
	h := newHarness(t, catalogSite(), subjectURL)
	openCatalog(t, h)
	v := NewCatalogVerifier(h.cache, h.logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.VerifyAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalogVerifier_ClosedSession(t *testing.T) {
	m := session.NewManager(driver.NewFactory(), &config.Settings{}, nil)
	require.NoError(t, m.Release())
	v := NewCatalogVerifier(pages.NewCache(m), nil)

	_, err := v.VerifyAll(context.Background())
	assert.ErrorIs(t, err, session.ErrSessionClosed)
}
