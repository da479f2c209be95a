package app

import (
	"sync"

	"campus-quiz-service/internal/domain"
)

// AnswerTracker maps question ids to the latest selected option.
type AnswerTracker struct {
	mu       sync.RWMutex
	selected map[string]domain.Option
}

func NewAnswerTracker() *AnswerTracker {
	return &AnswerTracker{selected: make(map[string]domain.Option)}
}

// Select overwrites any earlier choice for the question.
func (a *AnswerTracker) Select(questionID string, option domain.Option) {
	a.mu.Lock()
	a.selected[questionID] = option
	a.mu.Unlock()
}

func (a *AnswerTracker) Selected(questionID string) (domain.Option, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	o, ok := a.selected[questionID]
	return o, ok
}

// Count is the number of distinct answered questions.
func (a *AnswerTracker) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.selected)
}

func (a *AnswerTracker) Unanswered(total int) int {
	return total - a.Count()
}

// Snapshot returns a copy safe to hand to the scorer.
func (a *AnswerTracker) Snapshot() map[string]domain.Option {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]domain.Option, len(a.selected))
	for k, v := range a.selected {
		out[k] = v
	}
	return out
}

func (a *AnswerTracker) Reset() {
	a.mu.Lock()
	a.selected = make(map[string]domain.Option)
	a.mu.Unlock()
}
