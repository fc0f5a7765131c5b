package verify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/logging"
	"github.com/entrhq/coursecheck/pkg/pages"
)

// Label prefixes of the group listing entries.
const (
	DatePrefix      = "Presentation Date: "
	PresenterPrefix = "Presenters: "
	OpponentPrefix  = "Opponents: "
)

// Date layouts for reading the listing and for presence messages.
const (
	ListingDateLayout  = "2 January 2006"
	PresenceDateLayout = "02.01.2006"
)

// ClaimedGroupWarning is logged when a student is not in the group they
// claimed.
const ClaimedGroupWarning = "Student is not in a group with that student number."

var (
	// ErrNoStudent is returned by lookups made before Provide.
	ErrNoStudent = errors.New("verify: no student provided")

	errRosterNotLoaded = errors.New("verify: group roster not loaded")
)

// Role is the part a student plays in a presentation group.
type Role int

const (
	RolePresenter Role = iota + 1
	RoleOpponent
)

func (r Role) String() string {
	switch r {
	case RolePresenter:
		return "presenter"
	case RoleOpponent:
		return "opponent"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Group is one presentation group with its raw date text.
type Group struct {
	Number     int
	DateText   string
	Presenters []string
	Opponents  []string
}

// Roster is the ordered list of presentation groups, numbered from 1.
type Roster struct {
	groups []Group
}

// NewRoster builds a roster from the raw listing. Groups missing from one of
// the parallel collections get empty values for it.
func NewRoster(listing pages.GroupListing) *Roster {
	r := &Roster{groups: make([]Group, listing.Count)}
	for i := range r.groups {
		r.groups[i] = Group{
			Number:     i + 1,
			DateText:   strings.TrimSpace(strings.TrimPrefix(at(listing.Dates, i), DatePrefix)),
			Presenters: splitNames(strings.TrimPrefix(at(listing.Presenters, i), PresenterPrefix)),
			Opponents:  splitNames(strings.TrimPrefix(at(listing.Opponents, i), OpponentPrefix)),
		}
	}
	return r
}

func at(items []string, i int) string {
	if i < len(items) {
		return items[i]
	}
	return ""
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ", ") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Len returns the number of groups.
func (r *Roster) Len() int {
	return len(r.groups)
}

// Groups returns a copy of the groups in page order.
func (r *Roster) Groups() []Group {
	return append([]Group(nil), r.groups...)
}

func (r *Roster) group(g int) (Group, bool) {
	if g < 1 || g > len(r.groups) {
		return Group{}, false
	}
	return r.groups[g-1], true
}

// Presenters returns the presenters of group g, or nil if there is no such
// group.
func (r *Roster) Presenters(g int) []string {
	group, _ := r.group(g)
	return group.Presenters
}

// Opponents returns the opponents of group g, or nil if there is no such
// group.
func (r *Roster) Opponents(g int) []string {
	group, _ := r.group(g)
	return group.Opponents
}

// Date parses the presentation date of group g.
func (r *Roster) Date(g int) (time.Time, error) {
	group, ok := r.group(g)
	if !ok {
		return time.Time{}, fmt.Errorf("verify: no group %d among %d", g, len(r.groups))
	}
	date, err := time.Parse(ListingDateLayout, group.DateText)
	if err != nil {
		return time.Time{}, &DateParseError{Group: g, Text: group.DateText, Err: err}
	}
	return date, nil
}

// StudentQuery is the student being looked up and the group they claim.
type StudentQuery struct {
	Name         string
	ClaimedGroup int
}

// Membership holds the group numbers a student belongs to per role. Zero
// means no membership.
type Membership struct {
	PresenterGroup int
	OpponentGroup  int
}

// Group returns the group number for role.
func (m Membership) Group(role Role) int {
	switch role {
	case RolePresenter:
		return m.PresenterGroup
	case RoleOpponent:
		return m.OpponentGroup
	default:
		return 0
	}
}

// Any reports whether the student has at least one role.
func (m Membership) Any() bool {
	return m.PresenterGroup != 0 || m.OpponentGroup != 0
}

// GroupResolver answers group questions about one student from the
// presentation groups of the subject page.
type GroupResolver struct {
	pages  SubjectPages
	logger *zap.Logger

	roster   *Roster
	query    StudentQuery
	provided bool
}

// NewGroupResolver creates a resolver over p.
func NewGroupResolver(p SubjectPages, logger *zap.Logger) *GroupResolver {
	return &GroupResolver{pages: p, logger: logging.OrNop(logger)}
}

// Load reads the group listing of the current document into the roster.
func (r *GroupResolver) Load(ctx context.Context) error {
	subject, err := r.pages.Subject()
	if err != nil {
		return err
	}
	listing, err := subject.GroupListing(ctx)
	if err != nil {
		return fmt.Errorf("failed to read student groups: %w", err)
	}
	r.roster = NewRoster(listing)
	r.logger.Debug("student groups loaded", zap.Int("groups", r.roster.Len()))
	return nil
}

// Roster returns the loaded roster, or nil before Load.
func (r *GroupResolver) Roster() *Roster {
	return r.roster
}

// Provide records the student to look up. group must be a whole number; "0"
// means no claimed group.
func (r *GroupResolver) Provide(name, group string) error {
	n, err := strconv.Atoi(strings.TrimSpace(group))
	if err != nil || n < 0 {
		return fmt.Errorf("verify: invalid group number %q", group)
	}
	r.query = StudentQuery{Name: strings.TrimSpace(name), ClaimedGroup: n}
	r.provided = true
	return nil
}

// Query returns the recorded student.
func (r *GroupResolver) Query() (StudentQuery, bool) {
	return r.query, r.provided
}

// ResolveGroups scans every group for name. When a name appears in more than
// one group for the same role the first group wins.
func (r *GroupResolver) ResolveGroups(name string) (Membership, error) {
	var m Membership
	if r.roster == nil {
		return m, errRosterNotLoaded
	}

	for _, g := range r.roster.groups {
		if contains(g.Presenters, name) {
			if m.PresenterGroup == 0 {
				m.PresenterGroup = g.Number
			} else {
				r.logger.Warn("student presents in several groups",
					zap.String("student", name), zap.Int("kept", m.PresenterGroup), zap.Int("ignored", g.Number))
			}
		}
		if contains(g.Opponents, name) {
			if m.OpponentGroup == 0 {
				m.OpponentGroup = g.Number
			} else {
				r.logger.Warn("student opposes in several groups",
					zap.String("student", name), zap.Int("kept", m.OpponentGroup), zap.Int("ignored", g.Number))
			}
		}
	}
	return m, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (r *GroupResolver) student() (string, error) {
	if !r.provided {
		return "", ErrNoStudent
	}
	return r.query.Name, nil
}

// InAnyGroup reports whether the provided student has any role.
func (r *GroupResolver) InAnyGroup() (bool, error) {
	name, err := r.student()
	if err != nil {
		return false, err
	}
	m, err := r.ResolveGroups(name)
	if err != nil {
		return false, err
	}
	return m.Any(), nil
}

// VerifyClaimedGroup reports whether the provided student presents or
// opposes in group. A mismatch is logged as ClaimedGroupWarning.
func (r *GroupResolver) VerifyClaimedGroup(group int) (bool, error) {
	name, err := r.student()
	if err != nil {
		return false, err
	}
	if r.roster == nil {
		return false, errRosterNotLoaded
	}

	ok := contains(r.roster.Presenters(group), name) || contains(r.roster.Opponents(group), name)
	if !ok {
		r.logger.Warn(ClaimedGroupWarning, zap.String("student", name), zap.Int("group", group))
	}
	return ok, nil
}

// PresenceMessage tells when the provided student must attend in role. It
// fails with ErrNoMembership if the student does not have that role.
func (r *GroupResolver) PresenceMessage(role Role) (string, error) {
	name, err := r.student()
	if err != nil {
		return "", err
	}
	m, err := r.ResolveGroups(name)
	if err != nil {
		return "", err
	}
	group := m.Group(role)
	if group == 0 {
		return "", fmt.Errorf("%w: %s as %s", ErrNoMembership, name, role)
	}

	date, err := r.roster.Date(group)
	if err != nil {
		return "", err
	}
	formatted := date.Format(PresenceDateLayout)

	if role == RolePresenter {
		return fmt.Sprintf("The student %s should present on %s", name, formatted), nil
	}
	return fmt.Sprintf("The student %s should play the role of opponent on %s", name, formatted), nil
}
