package verify

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatListToText joins items as "a, b and c": commas between all but the
// last two and a single "and" before the last, without a serial comma.
func FormatListToText(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func formatIndices(indices []int) string {
	items := make([]string, len(indices))
	for i, n := range indices {
		items[i] = strconv.Itoa(n)
	}
	return FormatListToText(items)
}

// sentence picks the singular or plural template for n items. An empty list
// produces no message.
func sentence(n int, singular, plural, list string) string {
	switch {
	case n == 0:
		return ""
	case n == 1:
		return fmt.Sprintf(singular, list)
	default:
		return fmt.Sprintf(plural, list)
	}
}

// NotLoadedMessage reports course pages that did not load in time.
func NotLoadedMessage(titles []string) string {
	return sentence(len(titles),
		"The page of the course %s has not loaded successfully.",
		"The pages of the courses %s have not loaded successfully.",
		FormatListToText(titles))
}

// NoProfessorMessage reports courses that name no professor.
func NoProfessorMessage(titles []string) string {
	return sentence(len(titles),
		"The course %s does not have a professor.",
		"The courses %s do not have a professor.",
		FormatListToText(titles))
}

// LinkExistenceWarning reports assignments whose link is missing on the
// server.
func LinkExistenceWarning(indices []int) string {
	return sentence(len(indices),
		"Assignment %s has a link that does not exists on the server.",
		"Assignments %s have a link that does not exists on the server.",
		formatIndices(indices))
}

// LinkFormatMessage reports assignments whose link breaks the naming
// convention.
func LinkFormatMessage(indices []int) string {
	return sentence(len(indices),
		"Assignment %s has a link with an incorrect format.",
		"Assignments %s have a link with an incorrect format.",
		formatIndices(indices))
}

// InvalidDocumentWarning reports assignments whose link does not serve a
// valid PDF document.
func InvalidDocumentWarning(indices []int) string {
	return sentence(len(indices),
		"Assignment %s does not link to a valid PDF document.",
		"Assignments %s do not link to a valid PDF document.",
		formatIndices(indices))
}

// joinSentences joins the non-empty messages with a space.
func joinSentences(msgs ...string) string {
	kept := msgs[:0:0]
	for _, m := range msgs {
		if m != "" {
			kept = append(kept, m)
		}
	}
	return strings.Join(kept, " ")
}
