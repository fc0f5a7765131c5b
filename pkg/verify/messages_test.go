package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatListToText(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"empty", nil, ""},
		{"one", []string{"Algorithms"}, "Algorithms"},
		{"two", []string{"Algorithms", "Testing"}, "Algorithms and Testing"},
		{"three", []string{"a", "b", "c"}, "a, b and c"},
		{"four", []string{"a", "b", "c", "d"}, "a, b, c and d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatListToText(tt.items))
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "", NotLoadedMessage(nil))
	assert.Equal(t, "The page of the course Testing has not loaded successfully.",
		NotLoadedMessage([]string{"Testing"}))
	assert.Equal(t, "The pages of the courses Testing and Algorithms have not loaded successfully.",
		NotLoadedMessage([]string{"Testing", "Algorithms"}))

	assert.Equal(t, "The course Testing does not have a professor.",
		NoProfessorMessage([]string{"Testing"}))
	assert.Equal(t, "The courses a, b and c do not have a professor.",
		NoProfessorMessage([]string{"a", "b", "c"}))

	assert.Equal(t, "Assignment 3 has a link that does not exists on the server.",
		LinkExistenceWarning([]int{3}))
	assert.Equal(t, "Assignments 1, 3 and 4 have a link that does not exists on the server.",
		LinkExistenceWarning([]int{1, 3, 4}))

	assert.Equal(t, "Assignment 2 has a link with an incorrect format.",
		LinkFormatMessage([]int{2}))
	assert.Equal(t, "Assignments 2 and 5 have a link with an incorrect format.",
		LinkFormatMessage([]int{2, 5}))
	assert.Empty(t, LinkFormatMessage(nil))

	assert.Equal(t, "Assignments 1 and 2 do not link to a valid PDF document.",
		InvalidDocumentWarning([]int{1, 2}))
}

func TestCatalogResultErr(t *testing.T) {
	assert.NoError(t, CatalogResult{}.Err())

	err := CatalogResult{NotLoaded: []string{"Testing"}, NoProfessor: []string{"Algorithms"}}.Err()
	var failure *AssertionFailure
	assert.True(t, errors.As(err, &failure))
	assert.Equal(t,
		"The page of the course Testing has not loaded successfully. The course Algorithms does not have a professor.",
		failure.Message)
}

func TestFail(t *testing.T) {
	assert.NoError(t, Fail(""))
	assert.EqualError(t, Fail("boom"), "boom")
}
