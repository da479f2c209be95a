package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuizType selects the pool size and time limit of a session.
type QuizType string

const (
	QuizShort QuizType = "short"
	QuizFull  QuizType = "full"
)

// ParseQuizType accepts only the two known quiz types.
func ParseQuizType(raw string) (QuizType, error) {
	switch QuizType(strings.ToLower(strings.TrimSpace(raw))) {
	case QuizShort:
		return QuizShort, nil
	case QuizFull:
		return QuizFull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQuizType, raw)
}

// QuestionCap is the maximum number of questions drawn for the quiz type.
func (t QuizType) QuestionCap() int {
	if t == QuizFull {
		return 100
	}
	return 20
}

// Duration is the session time limit.
func (t QuizType) Duration() time.Duration {
	if t == QuizFull {
		return 180 * time.Minute
	}
	return 30 * time.Minute
}

// CategoryType is a closed set; CategoryUnknown is the explicit fallback.
type CategoryType int

const (
	CategoryUnknown CategoryType = iota
	CategorySubject
	CategoryCompetitive
)

// ParseCategoryType maps the stored tag to a CategoryType, failing on anything unrecognised.
func ParseCategoryType(raw string) (CategoryType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "subject":
		return CategorySubject, nil
	case "competitive":
		return CategoryCompetitive, nil
	}
	return CategoryUnknown, fmt.Errorf("%w: %q", ErrUnknownCategoryType, raw)
}

func (t CategoryType) String() string {
	switch t {
	case CategorySubject:
		return "subject"
	case CategoryCompetitive:
		return "competitive"
	}
	return "unknown"
}

// Label is the display name shown next to a category.
func (t CategoryType) Label() string {
	switch t {
	case CategorySubject:
		return "Subject"
	case CategoryCompetitive:
		return "Competitive Exam"
	}
	return "Unknown"
}

func (t CategoryType) MarshalText() ([]byte, error) {
	if t == CategoryUnknown {
		return nil, ErrUnknownCategoryType
	}
	return []byte(t.String()), nil
}

func (t *CategoryType) UnmarshalText(text []byte) error {
	parsed, err := ParseCategoryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Option is an answer letter.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// ParseOption normalises case and whitespace.
func ParseOption(raw string) (Option, error) {
	switch o := Option(strings.ToUpper(strings.TrimSpace(raw))); o {
	case OptionA, OptionB, OptionC, OptionD:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOption, raw)
}

// QuestionType tags how the prompt should be rendered.
type QuestionType string

const (
	QuestionText         QuestionType = "text"
	QuestionMathematical QuestionType = "mathematical"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)
