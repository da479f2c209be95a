package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// AttemptStore keeps attempts and answers in process memory.
type AttemptStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	attempts []domain.QuizAttempt
	answers  map[string][]domain.QuizAnswer
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		clock:   time.Now,
		answers: make(map[string][]domain.QuizAnswer),
	}
}

// NewAttemptStoreWithClock is test-only for deterministic timestamps.
func NewAttemptStoreWithClock(now func() time.Time) *AttemptStore {
	s := NewAttemptStore()
	s.clock = now
	return s
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.NewAttempt) (domain.QuizAttempt, error) {
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = s.clock()
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = attempt.CompletedAt
	}
	created := domain.QuizAttempt{ID: uuid.NewString(), NewAttempt: attempt}

	s.mu.Lock()
	s.attempts = append(s.attempts, created)
	s.mu.Unlock()
	return created, nil
}

func (s *AttemptStore) Attempt(_ context.Context, id string) (domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.QuizAttempt{}, domain.ErrAttemptNotFound
}

// Attempts lists newest completions first; equal completion times keep insertion order.
func (s *AttemptStore) Attempts(_ context.Context) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	out := append([]domain.QuizAttempt(nil), s.attempts...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *AttemptStore) SaveAnswers(ctx context.Context, attemptID string, answers []domain.QuizAnswer) ([]domain.QuizAnswer, error) {
	if _, err := s.Attempt(ctx, attemptID); err != nil {
		return nil, err
	}
	now := s.clock()
	saved := make([]domain.QuizAnswer, 0, len(answers))
	for _, a := range answers {
		a.ID = uuid.NewString()
		a.AttemptID = attemptID
		a.CreatedAt = now
		saved = append(saved, a)
	}

	s.mu.Lock()
	s.answers[attemptID] = append(s.answers[attemptID], saved...)
	s.mu.Unlock()
	return saved, nil
}

func (s *AttemptStore) Answers(_ context.Context, attemptID string) ([]domain.QuizAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizAnswer{}, s.answers[attemptID]...), nil
}
