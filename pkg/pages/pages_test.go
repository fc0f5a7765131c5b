package pages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/coursecheck/pkg/browser/browsertest"
	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/driver"
	"github.com/entrhq/coursecheck/pkg/session"
)

const (
	homeURL    = "http://site/"
	coursesURL = "http://site/courses"
	subjectURL = "http://site/courses/software-testing"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Browser:      config.BrowserChrome,
		Environment:  config.EnvironmentLocal,
		Engine:       config.EngineStatic,
		ImplicitWait: time.Second,
		HomeURL:      homeURL,
		CoursesURL:   coursesURL,
		SubjectURL:   subjectURL,
		Locators:     config.DefaultLocators(),
	}
}

func newManager(t *testing.T, site browsertest.Site) (*session.Manager, *browsertest.Launcher) {
	t.Helper()
	l := &browsertest.Launcher{Site: site}
	f := driver.NewFactory(driver.WithLauncher(config.EngineStatic, l))
	m := session.NewManager(f, testSettings(), nil)
	t.Cleanup(func() { _ = m.Release() })
	return m, l
}

func TestCache_RequiresActiveSession(t *testing.T) {
	m, _ := newManager(t, nil)
	c := NewCache(m)

	_, err := c.Home()
	assert.ErrorIs(t, err, session.ErrSessionNotActive)
	_, err = c.Catalog()
	assert.ErrorIs(t, err, session.ErrSessionNotActive)
	_, err = c.Subject()
	assert.ErrorIs(t, err, session.ErrSessionNotActive)
	_, err = c.FreshCourseDetails()
	assert.ErrorIs(t, err, session.ErrSessionNotActive)
}

func TestCache_CacheablePagesAreSingletons(t *testing.T) {
	m, _ := newManager(t, nil)
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	c := NewCache(m)

	h1, err := c.Home()
	require.NoError(t, err)
	h2, err := c.Home()
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	cat1, err := c.Catalog()
	require.NoError(t, err)
	cat2, err := c.Catalog()
	require.NoError(t, err)
	assert.Same(t, cat1, cat2)

	s1, err := c.Subject()
	require.NoError(t, err)
	s2, err := c.Subject()
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestCache_CourseDetailsIsNeverCached(t *testing.T) {
	m, _ := newManager(t, nil)
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	c := NewCache(m)

	d1, err := c.FreshCourseDetails()
	require.NoError(t, err)
	d2, err := c.FreshCourseDetails()
	require.NoError(t, err)
	assert.NotSame(t, d1, d2)
}

func TestCache_ClosedSession(t *testing.T) {
	m, _ := newManager(t, nil)
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	c := NewCache(m)
	_, err = c.Home()
	require.NoError(t, err)

	require.NoError(t, m.Release())
	_, err = c.Home()
	assert.ErrorIs(t, err, session.ErrSessionClosed)
}

func TestHome_NavigatesToCourses(t *testing.T) {
	site := browsertest.Site{
		homeURL: {Nodes: map[string][]browsertest.Node{
			"a[title='Courses']": {{Text: "Courses", Href: coursesURL}},
		}},
	}
	m, l := newManager(t, site)
	ctx := context.Background()
	_, err := m.Acquire(ctx)
	require.NoError(t, err)
	c := NewCache(m)

	home, err := c.Home()
	require.NoError(t, err)
	require.NoError(t, home.Open(ctx))
	require.NoError(t, home.ClickCoursesLink(ctx))

	assert.Equal(t, []string{homeURL, coursesURL}, l.Drivers()[0].Visited())
}

func TestDetailsPage(t *testing.T) {
	loc := config.DefaultLocators()
	site := browsertest.Site{
		"http://site/courses/algorithms": {Nodes: map[string][]browsertest.Node{
			loc.DetailsReady:     {{}},
			loc.DetailsTitle:     {{Text: "Algorithms"}},
			loc.DetailsProfessor: {{Text: "A. Smith"}, {Text: "B. Jones"}},
		}},
		"http://site/courses/hidden": {Nodes: map[string][]browsertest.Node{
			loc.DetailsReady: {{Hidden: true}},
		}},
	}
	m, _ := newManager(t, site)
	ctx := context.Background()
	s, err := m.Acquire(ctx)
	require.NoError(t, err)
	d, err := s.Driver()
	require.NoError(t, err)
	c := NewCache(m)

	require.NoError(t, d.Navigate(ctx, "http://site/courses/algorithms"))
	page, err := c.FreshCourseDetails()
	require.NoError(t, err)

	loaded, err := page.IsLoaded(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)

	title, err := page.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Algorithms", title)

	profs, err := page.Professors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A. Smith", "B. Jones"}, profs)

	require.NoError(t, d.Navigate(ctx, "http://site/courses/hidden"))
	page, err = c.FreshCourseDetails()
	require.NoError(t, err)
	loaded, err = page.IsLoaded(ctx)
	require.NoError(t, err)
	assert.False(t, loaded)

	profs, err = page.Professors(ctx)
	require.NoError(t, err)
	assert.Empty(t, profs)

	require.NoError(t, d.Navigate(ctx, "http://site/nowhere"))
	loaded, err = page.IsLoaded(ctx)
	require.NoError(t, err, "missing readiness element is not an error")
	assert.False(t, loaded)
}

func TestSubjectPage_GroupListing(t *testing.T) {
	loc := config.DefaultLocators()
	site := browsertest.Site{
		subjectURL: {Nodes: map[string][]browsertest.Node{
			loc.Groups:          {{}, {}},
			loc.GroupDates:      {{Text: "Presentation Date: 3 June 2024"}, {Text: "Presentation Date: 10 June 2024"}},
			loc.GroupPresenters: {{Text: "Presenters: Ann Lee, Bob Stone"}, {Text: "Presenters: Cy Twombly"}},
			loc.GroupOpponents:  {{Text: "Opponents: Cy Twombly"}, {Text: "Opponents: Ann Lee"}},
			loc.AssignmentLinks: {{Text: "Assignment 1"}, {Text: "Slides"}},
		}},
	}
	m, _ := newManager(t, site)
	ctx := context.Background()
	_, err := m.Acquire(ctx)
	require.NoError(t, err)
	c := NewCache(m)

	subject, err := c.Subject()
	require.NoError(t, err)
	require.NoError(t, subject.Open(ctx))
	assert.Equal(t, subjectURL, subject.URL())

	listing, err := subject.GroupListing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Count)
	assert.Equal(t, "Presentation Date: 10 June 2024", listing.Dates[1])
	assert.Equal(t, "Presenters: Ann Lee, Bob Stone", listing.Presenters[0])
	assert.Equal(t, "Opponents: Ann Lee", listing.Opponents[1])

	links, err := subject.LinkElements(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}
