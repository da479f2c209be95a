// Package seed reads category and question content from YAML.
package seed

import (
	"fmt"
	"os"
	"time"

	"campus-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Data is the content of a seed file.
type Data struct {
	Categories []domain.Category `yaml:"categories"`
	Questions  []domain.Question `yaml:"questions"`
}

// Load reads and validates a seed file.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("read seed: %w", err)
	}
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("parse seed: %w", err)
	}
	if err := data.Validate(); err != nil {
		return Data{}, err
	}
	data.stamp(time.Now())
	return data, nil
}

// Validate checks that every question belongs to a known category and has a usable answer key.
func (d Data) Validate() error {
	known := make(map[string]bool, len(d.Categories))
	for _, c := range d.Categories {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("category %q: id and name are required", c.ID)
		}
		if c.Type == domain.CategoryUnknown {
			return fmt.Errorf("category %q: %w", c.ID, domain.ErrUnknownCategoryType)
		}
		known[c.ID] = true
	}
	seen := make(map[string]bool, len(d.Questions))
	for _, q := range d.Questions {
		if q.ID == "" || seen[q.ID] {
			return fmt.Errorf("question %q: missing or duplicate id", q.ID)
		}
		seen[q.ID] = true
		if !known[q.CategoryID] {
			return fmt.Errorf("question %q: %w: %s", q.ID, domain.ErrCategoryNotFound, q.CategoryID)
		}
		if _, err := domain.ParseOption(string(q.CorrectAnswer)); err != nil {
			return fmt.Errorf("question %q: %w", q.ID, err)
		}
	}
	return nil
}

func (d Data) stamp(now time.Time) {
	for i := range d.Categories {
		if d.Categories[i].CreatedAt.IsZero() {
			d.Categories[i].CreatedAt = now
		}
	}
	for i := range d.Questions {
		q := &d.Questions[i]
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		if q.Type == "" {
			q.Type = domain.QuestionText
		}
		if q.Difficulty == "" {
			q.Difficulty = domain.DifficultyMedium
		}
	}
}

// Sample is the built-in demo content used when no seed file is configured.
func Sample() Data {
	data := Data{
		Categories: []domain.Category{
			{ID: "physics", Name: "Physics", Type: domain.CategorySubject},
			{ID: "jee-maths", Name: "JEE Mathematics", Type: domain.CategoryCompetitive},
		},
		Questions: []domain.Question{
			{ID: "phy-1", CategoryID: "physics", Prompt: "What is the SI unit of force?", OptionA: "Newton", OptionB: "Joule", OptionC: "Watt", OptionD: "Pascal", CorrectAnswer: domain.OptionA, Explanation: "1 N = 1 kg·m/s²", Difficulty: domain.DifficultyEasy},
			{ID: "phy-2", CategoryID: "physics", Prompt: "Which quantity is a vector?", OptionA: "Mass", OptionB: "Speed", OptionC: "Velocity", OptionD: "Energy", CorrectAnswer: domain.OptionC, Difficulty: domain.DifficultyEasy},
			{ID: "phy-3", CategoryID: "physics", Prompt: "Acceleration due to gravity near Earth's surface is about", OptionA: "8.9 m/s²", OptionB: "9.8 m/s²", OptionC: "10.8 m/s²", OptionD: "6.7 m/s²", CorrectAnswer: domain.OptionB, Difficulty: domain.DifficultyMedium},
			{ID: "jee-1", CategoryID: "jee-maths", Prompt: "d/dx (x²) = ?", Type: domain.QuestionMathematical, OptionA: "x", OptionB: "2x", OptionC: "x²", OptionD: "2", CorrectAnswer: domain.OptionB, Difficulty: domain.DifficultyEasy},
			{ID: "jee-2", CategoryID: "jee-maths", Prompt: "∫ 1/x dx = ?", Type: domain.QuestionMathematical, OptionA: "ln|x| + C", OptionB: "x + C", OptionC: "1/x² + C", OptionD: "e^x + C", CorrectAnswer: domain.OptionA, Difficulty: domain.DifficultyMedium},
		},
	}
	data.stamp(time.Now())
	return data
}
