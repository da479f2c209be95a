package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a quiz session id is unknown or already released.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when an action targets an exited session.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrQuestionNotFound indicates a question id outside the session's pool.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidOption indicates an answer letter other than A, B, C or D.
	ErrInvalidOption = errors.New("option must be one of A, B, C, D")
	// ErrInvalidQuestionIndex is returned when jumping outside the question pool.
	ErrInvalidQuestionIndex = errors.New("question index out of range")
	// ErrAttemptNotFound indicates the attempt id has no stored record.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrCategoryNotFound indicates the category id has no stored record.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrUnknownQuizType indicates a quiz type other than short or full.
	ErrUnknownQuizType = errors.New("unknown quiz type")
	// ErrUnknownCategoryType indicates a category type other than subject or competitive.
	ErrUnknownCategoryType = errors.New("unknown category type")
	// ErrInvalidTransition is returned when an action is not allowed in the session's current state.
	ErrInvalidTransition = errors.New("action not allowed in current quiz state")
	// ErrSubmitUnavailable is returned when submit is requested before the final question.
	ErrSubmitUnavailable = errors.New("submit is only available on the final question")
	// ErrNoQuestions marks a session whose category has no questions to draw.
	ErrNoQuestions = errors.New("no questions available for this category")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries a ValidationError or a client input sentinel.
// ErrUnknownCategoryType is excluded: categories are stored data, not input.
func IsValidation(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	return errors.Is(err, ErrInvalidOption) ||
		errors.Is(err, ErrUnknownQuizType) ||
		errors.Is(err, ErrInvalidQuestionIndex)
}
