package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/coursecheck/pkg/browser/browsertest"
	"github.com/entrhq/coursecheck/pkg/pages"
)

func groupSite(dates, presenters, opponents []string) browsertest.Site {
	nodes := func(texts []string) []browsertest.Node {
		out := make([]browsertest.Node, len(texts))
		for i, t := range texts {
			out[i] = browsertest.Node{Text: t}
		}
		return out
	}
	return browsertest.Site{
		subjectURL: {Nodes: map[string][]browsertest.Node{
			loc.Groups:          make([]browsertest.Node, len(dates)),
			loc.GroupDates:      nodes(dates),
			loc.GroupPresenters: nodes(presenters),
			loc.GroupOpponents:  nodes(opponents),
		}},
	}
}

func defaultGroupSite() browsertest.Site {
	return groupSite(
		[]string{"Presentation Date: 3 June 2024", "Presentation Date: 10 June 2024", "Presentation Date: 17 June 2024"},
		[]string{"Presenters: Ann Lee, Bob Stone", "Presenters: Cy Twombly", "Presenters: Dee Dee"},
		[]string{"Opponents: Cy Twombly", "Opponents: Dee Dee", "Opponents: Ann Lee, Eve Ray"},
	)
}

func newLoadedResolver(t *testing.T, site browsertest.Site) (*harness, *GroupResolver) {
	t.Helper()
	h := newHarness(t, site, subjectURL)
	openSubject(t, h)
	r := NewGroupResolver(h.cache, h.logger)
	require.NoError(t, r.Load(context.Background()))
	return h, r
}

func TestNewRoster(t *testing.T) {
	roster := NewRoster(pages.GroupListing{
		Count:      2,
		Dates:      []string{"Presentation Date: 3 June 2024", "Presentation Date: 10 June 2024"},
		Presenters: []string{"Presenters: Ann Lee, Bob Stone", "Presenters: Cy Twombly"},
		Opponents:  []string{"Opponents: Cy Twombly"},
	})

	want := []Group{
		{Number: 1, DateText: "3 June 2024", Presenters: []string{"Ann Lee", "Bob Stone"}, Opponents: []string{"Cy Twombly"}},
		{Number: 2, DateText: "10 June 2024", Presenters: []string{"Cy Twombly"}},
	}
	if diff := cmp.Diff(want, roster.Groups()); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, roster.Len())
	assert.Nil(t, roster.Presenters(3))
	assert.Nil(t, roster.Opponents(0))

	date, err := roster.Date(1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), date)

	_, err = roster.Date(5)
	assert.Error(t, err)
}

func TestRoster_MalformedDate(t *testing.T) {
	roster := NewRoster(pages.GroupListing{
		Count: 1,
		Dates: []string{"Presentation Date: 2024-06-03"},
	})
	_, err := roster.Date(1)

	var dateErr *DateParseError
	require.True(t, errors.As(err, &dateErr))
	assert.Equal(t, 1, dateErr.Group)
	assert.Equal(t, "2024-06-03", dateErr.Text)
}

func TestGroupResolver_Provide(t *testing.T) {
	r := NewGroupResolver(nil, nil)

	_, ok := r.Query()
	assert.False(t, ok)

	require.NoError(t, r.Provide("Ann Lee", "0"))
	q, ok := r.Query()
	assert.True(t, ok)
	assert.Equal(t, StudentQuery{Name: "Ann Lee", ClaimedGroup: 0}, q)

	require.NoError(t, r.Provide(" Bob Stone ", " 2"))
	q, _ = r.Query()
	assert.Equal(t, StudentQuery{Name: "Bob Stone", ClaimedGroup: 2}, q)

	assert.Error(t, r.Provide("Ann Lee", "two"))
	assert.Error(t, r.Provide("Ann Lee", "-1"))
}

func TestGroupResolver_ResolveGroups(t *testing.T) {
	_, r := newLoadedResolver(t, defaultGroupSite())

	tests := []struct {
		name string
		want Membership
	}{
		{"Ann Lee", Membership{PresenterGroup: 1, OpponentGroup: 3}},
		{"Bob Stone", Membership{PresenterGroup: 1}},
		{"Eve Ray", Membership{OpponentGroup: 3}},
		{"Cy Twombly", Membership{PresenterGroup: 2, OpponentGroup: 1}},
		{"Nobody", Membership{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := r.ResolveGroups(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestGroupResolver_DuplicateMembershipKeepsFirst(t *testing.T) {
	site := groupSite(
		[]string{"Presentation Date: 3 June 2024", "Presentation Date: 10 June 2024"},
		[]string{"Presenters: Ann Lee", "Presenters: Ann Lee"},
		[]string{"Opponents: Bob Stone", "Opponents: Cy Twombly"},
	)
	h, r := newLoadedResolver(t, site)

	m, err := r.ResolveGroups("Ann Lee")
	require.NoError(t, err)
	assert.Equal(t, 1, m.PresenterGroup)
	assert.Equal(t, []string{"student presents in several groups"}, h.warnings())
}

func TestGroupResolver_RequiresStudentAndRoster(t *testing.T) {
	r := NewGroupResolver(nil, nil)

	_, err := r.InAnyGroup()
	assert.ErrorIs(t, err, ErrNoStudent)

	require.NoError(t, r.Provide("Ann Lee", "1"))
	_, err = r.InAnyGroup()
	assert.Error(t, err)
	_, err = r.VerifyClaimedGroup(1)
	assert.Error(t, err)
}

func TestGroupResolver_VerifyClaimedGroup(t *testing.T) {
	h, r := newLoadedResolver(t, defaultGroupSite())
	require.NoError(t, r.Provide("Ann Lee", "3"))

	ok, err := r.VerifyClaimedGroup(3)
	require.NoError(t, err)
	assert.True(t, ok, "opponent in group 3")
	assert.Empty(t, h.warnings())

	ok, err = r.VerifyClaimedGroup(2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{ClaimedGroupWarning}, h.warnings())

	ok, err = r.VerifyClaimedGroup(9)
	require.NoError(t, err)
	assert.False(t, ok, "group out of range")
}

func TestGroupResolver_PresenceMessage(t *testing.T) {
	_, r := newLoadedResolver(t, defaultGroupSite())
	require.NoError(t, r.Provide("Ann Lee", "0"))

	in, err := r.InAnyGroup()
	require.NoError(t, err)
	assert.True(t, in)

	msg, err := r.PresenceMessage(RolePresenter)
	require.NoError(t, err)
	assert.Equal(t, "The student Ann Lee should present on 03.06.2024", msg)

	msg, err = r.PresenceMessage(RoleOpponent)
	require.NoError(t, err)
	assert.Equal(t, "The student Ann Lee should play the role of opponent on 17.06.2024", msg)
}

func TestGroupResolver_PresenceWithoutRole(t *testing.T) {
	_, r := newLoadedResolver(t, defaultGroupSite())
	require.NoError(t, r.Provide("Bob Stone", "0"))

	_, err := r.PresenceMessage(RoleOpponent)
	assert.ErrorIs(t, err, ErrNoMembership)

	require.NoError(t, r.Provide("Nobody", "0"))
	in, err := r.InAnyGroup()
	require.NoError(t, err)
	assert.False(t, in)
}

func TestGroupResolver_PresenceMalformedDate(t *testing.T) {
	site := groupSite(
		[]string{"Presentation Date: June 3rd"},
		[]string{"Presenters: Ann Lee"},
		[]string{"Opponents: Bob Stone"},
	)
	_, r := newLoadedResolver(t, site)
	require.NoError(t, r.Provide("Ann Lee", "1"))

	_, err := r.PresenceMessage(RolePresenter)
	var dateErr *DateParseError
	assert.True(t, errors.As(err, &dateErr))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "presenter", RolePresenter.String())
	assert.Equal(t, "opponent", RoleOpponent.String())
	assert.Equal(t, "Role(7)", Role(7).String())
}
