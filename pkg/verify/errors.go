package verify

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoMembership is returned when a presence message is requested for a
// role the student does not have.
var ErrNoMembership = errors.New("verify: student has no membership for that role")

// AssertionFailure is a verification that failed. Message is the sentence
// shown to the user.
type AssertionFailure struct {
	Message string
}

func (e *AssertionFailure) Error() string {
	return e.Message
}

// Fail returns an *AssertionFailure for message, or nil if it is empty.
func Fail(message string) error {
	if message == "" {
		return nil
	}
	return &AssertionFailure{Message: message}
}

// LoadTimeoutError records a page that did not become ready in time.
type LoadTimeoutError struct {
	Course  string
	Timeout time.Duration
}

func (e *LoadTimeoutError) Error() string {
	return fmt.Sprintf("verify: page of %q not loaded after %s", e.Course, e.Timeout)
}

// LinkProbeError is a request that failed before any status code arrived.
type LinkProbeError struct {
	URL string
	Err error
}

func (e *LinkProbeError) Error() string {
	return fmt.Sprintf("verify: probing %s: %v", e.URL, e.Err)
}

func (e *LinkProbeError) Unwrap() error {
	return e.Err
}

// DateParseError is a presentation date that does not match the expected
// "2 January 2006" layout.
type DateParseError struct {
	Group int
	Text  string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("verify: group %d has malformed date %q: %v", e.Group, e.Text, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}
