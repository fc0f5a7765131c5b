package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/coursecheck/pkg/browser/browsertest"
)

// newAssignmentServer serves every assignment document except the ones in
// missing, which answer 404.
func newAssignmentServer(t *testing.T, missing ...int) *httptest.Server {
	t.Helper()
	gone := map[string]bool{}
	for _, i := range missing {
		gone[ExpectedAssignmentPath(i)] = true
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gone[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "not really a pdf")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func assignmentNode(i int, href string) browsertest.Node {
	return browsertest.Node{Text: fmt.Sprintf("Assignment %d", i), Href: href}
}

// subjectSite serves the subject page at base with the given link nodes.
func subjectSite(base string, links ...browsertest.Node) browsertest.Site {
	return browsertest.Site{
		base + "/courses/software-testing": {Nodes: map[string][]browsertest.Node{
			loc.AssignmentLinks: links,
		}},
	}
}

func openSubject(t *testing.T, h *harness) {
	t.Helper()
	subject, err := h.cache.Subject()
	require.NoError(t, err)
	require.NoError(t, subject.Open(context.Background()))
}

func newAssignmentHarness(t *testing.T, srv *httptest.Server, links ...browsertest.Node) (*harness, *AssignmentVerifier) {
	t.Helper()
	h := newHarness(t, subjectSite(srv.URL, links...), srv.URL+"/courses/software-testing")
	openSubject(t, h)
	return h, NewAssignmentVerifier(h.cache, NewLinkProber(srv.Client()), h.logger)
}

func fiveAssignments() []browsertest.Node {
	var links []browsertest.Node
	for i := 1; i <= 5; i++ {
		links = append(links, assignmentNode(i, ExpectedAssignmentPath(i)))
	}
	return links
}

func TestAssignmentVerifier_ListSkipsResourceLinks(t *testing.T) {
	srv := newAssignmentServer(t)
	links := []browsertest.Node{
		assignmentNode(1, ExpectedAssignmentPath(1)),
		{Text: "Slides", Href: "/system/files/slides.pdf"},
		assignmentNode(2, ExpectedAssignmentPath(2)),
	}
	_, v := newAssignmentHarness(t, srv, links...)

	got, err := v.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].Index)
	assert.Equal(t, "Assignment 2", got[1].Text)
	assert.Equal(t, ExpectedAssignmentPath(2), got[1].Href)
	assert.Equal(t, srv.URL+ExpectedAssignmentPath(2), got[1].URL)
}

func TestAssignmentVerifier_VerifyExistence(t *testing.T) {
	srv := newAssignmentServer(t, 3)
	h, v := newAssignmentHarness(t, srv, fiveAssignments()...)

	missing, err := v.VerifyExistence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, missing)
	assert.Equal(t, []string{"Assignment 3 has a link that does not exists on the server."}, h.warnings())
}

func TestAssignmentVerifier_VerifyExistenceAllPresent(t *testing.T) {
	srv := newAssignmentServer(t)
	h, v := newAssignmentHarness(t, srv, fiveAssignments()...)

	missing, err := v.VerifyExistence(context.Background())
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Empty(t, h.warnings())
}

func TestAssignmentVerifier_UnreachableLinkCountsAsMissing(t *testing.T) {
	srv := newAssignmentServer(t)
	links := []browsertest.Node{
		assignmentNode(1, ExpectedAssignmentPath(1)),
		assignmentNode(2, "http://127.0.0.1:1"+ExpectedAssignmentPath(2)),
	}
	h, v := newAssignmentHarness(t, srv, links...)

	missing, err := v.VerifyExistence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, missing)
	assert.Contains(t, h.warnings(), "link probe failed")
	assert.Contains(t, h.warnings(), "Assignment 2 has a link that does not exists on the server.")
}

func TestAssignmentVerifier_VerifyFormat(t *testing.T) {
	srv := newAssignmentServer(t)
	links := []browsertest.Node{
		assignmentNode(1, ExpectedAssignmentPath(1)),
		assignmentNode(2, "/system/files/uploads/courses/Testing/assignment-2.pdf"),
		assignmentNode(3, srv.URL+ExpectedAssignmentPath(3)),
		assignmentNode(4, "http://elsewhere.example"+ExpectedAssignmentPath(4)),
		assignmentNode(5, ExpectedAssignmentPath(6)),
	}
	_, v := newAssignmentHarness(t, srv, links...)

	malformed, err := v.VerifyFormat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5}, malformed)
	assert.Equal(t, "Assignments 2, 4 and 5 have a link with an incorrect format.", LinkFormatMessage(malformed))
}

func TestAssignmentVerifier_VerifyDocuments(t *testing.T) {
	srv := newAssignmentServer(t, 2)
	links := []browsertest.Node{
		assignmentNode(1, ExpectedAssignmentPath(1)),
		assignmentNode(2, ExpectedAssignmentPath(2)),
	}
	h, v := newAssignmentHarness(t, srv, links...)

	invalid, err := v.VerifyDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, invalid)
	assert.Contains(t, h.warnings(), "Assignments 1 and 2 do not link to a valid PDF document.")
}

func TestLinkProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			fmt.Fprint(w, "ok")
		}
	}))
	defer srv.Close()

	p := NewLinkProber(srv.Client())
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{"/doc", true},
		{"/gone", false},
		{"/forbidden", true},
	}
	for _, tt := range tests {
		ok, err := p.Exists(ctx, srv.URL+tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, tt.path)
	}

	data, err := p.Fetch(ctx, srv.URL+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))

	_, err = p.Fetch(ctx, srv.URL+"/forbidden")
	assert.Error(t, err)

	ok, err := p.Exists(ctx, "://bad")
	assert.False(t, ok)
	var probeErr *LinkProbeError
	assert.True(t, errors.As(err, &probeErr))
	assert.Equal(t, "://bad", probeErr.URL)
}
