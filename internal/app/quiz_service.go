package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campus-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// SessionRepository abstracts where live quiz sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionRepository loads a category's full question set (from cache/backing store).
type QuestionRepository interface {
	Questions(ctx context.Context, categoryID string) ([]domain.Question, error)
}

// CategoryRepository reads quiz categories.
type CategoryRepository interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Category(ctx context.Context, id string) (domain.Category, error)
}

// AttemptRepository persists finished attempts and their per-question answers.
type AttemptRepository interface {
	AttemptLister
	CreateAttempt(ctx context.Context, attempt domain.NewAttempt) (domain.QuizAttempt, error)
	Attempt(ctx context.Context, id string) (domain.QuizAttempt, error)
	SaveAnswers(ctx context.Context, attemptID string, answers []domain.QuizAnswer) ([]domain.QuizAnswer, error)
	Answers(ctx context.Context, attemptID string) ([]domain.QuizAnswer, error)
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions   SessionRepository
	categories CategoryRepository
	attempts   AttemptRepository
	pool       *QuestionPool
	ranker     *RankCalculator
	ticks      TickSource
	now        func() time.Time
	log        *slog.Logger
}

// ServiceOption customises a QuizService.
type ServiceOption func(*QuizService)

// WithTickSource replaces the wall-clock second ticker, e.g. for simulated time in tests.
func WithTickSource(src TickSource) ServiceOption {
	return func(s *QuizService) { s.ticks = src }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) {
		s.now = now
		s.ranker.now = now
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *QuizService) { s.log = logger }
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository, categories CategoryRepository, attempts AttemptRepository, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions:   sessions,
		categories: categories,
		attempts:   attempts,
		pool:       NewQuestionPool(questions),
		ranker:     NewRankCalculator(attempts),
		ticks:      SecondTicker,
		now:        time.Now,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRequest is the student's enrolment form plus the chosen quiz.
type StartRequest struct {
	Student    domain.Student `json:"student"`
	CategoryID string         `json:"category_id"`
	QuizType   string         `json:"quiz_type"`
}

// Start validates the request, registers a new session and loads its question pool.
// A category without questions still returns a session, in StateNoQuestions.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if err := req.Student.Validate(); err != nil {
		return nil, err
	}
	quizType, err := domain.ParseQuizType(req.QuizType)
	if err != nil {
		return nil, err
	}
	categoryID := strings.TrimSpace(req.CategoryID)
	if categoryID == "" {
		return nil, &domain.ValidationError{Fields: map[string]string{"category_id": "Please select a category"}}
	}
	if _, err := s.categories.Category(ctx, categoryID); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, err
		}
		// Category metadata is display-only; the pool draw decides whether the quiz can run.
		s.log.Warn("category lookup failed", "category_id", categoryID, "error", err)
	}

	session := NewSession(uuid.NewString(), req.Student, categoryID, quizType, SessionDeps{
		Pool:       s.pool,
		Attempts:   s.attempts,
		Ranker:     s.ranker,
		Ticks:      s.ticks,
		Now:        s.now,
		Logger:     s.log,
		OnTerminal: s.releaseIdle,
	})
	s.sessions.Put(session)
	if err := session.Load(ctx); err != nil {
		s.sessions.Delete(session.ID())
		return nil, err
	}
	return session, nil
}

func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Subscribe returns a channel that receives snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Snapshot, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Exit abandons a session and forgets it.
func (s *QuizService) Exit(_ context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.Exit()
	s.sessions.Delete(sessionID)
	return nil
}

// Release forgets a session that has reached a terminal state.
func (s *QuizService) Release(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if session.State().Terminal() {
		s.sessions.Delete(sessionID)
	}
}

// releaseIdle forgets a session that finished with nobody watching, e.g. an
// empty category or a timer-forced submit after the socket dropped. Watched
// sessions are released when their socket closes.
func (s *QuizService) releaseIdle(session *Session) {
	if session.Watched() {
		return
	}
	s.sessions.Delete(session.ID())
	s.log.Debug("released idle session", "session_id", session.ID(), "state", session.State())
}

func (s *QuizService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.Categories(ctx)
}

// Questions draws a pool the same way a session would; used by the admin-facing API.
func (s *QuizService) Questions(ctx context.Context, categoryID, rawQuizType string) ([]domain.Question, error) {
	quizType, err := domain.ParseQuizType(rawQuizType)
	if err != nil {
		return nil, err
	}
	questions, err := s.pool.Draw(ctx, categoryID, quizType)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoQuestions, categoryID)
	}
	return questions, nil
}

// Attempt loads one attempt with its category attached when known.
func (s *QuizService) Attempt(ctx context.Context, id string) (domain.QuizAttempt, error) {
	attempt, err := s.attempts.Attempt(ctx, id)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if category, err := s.categories.Category(ctx, attempt.CategoryID); err == nil {
		attempt.Category = &category
	}
	return attempt, nil
}

// Attempts lists all attempts with categories attached when known.
func (s *QuizService) Attempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	attempts, err := s.attempts.Attempts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.Categories(ctx)
	if err != nil {
		s.log.Warn("list categories for attempts", "error", err)
		return attempts, nil
	}
	byID := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	for i := range attempts {
		if c, ok := byID[attempts[i].CategoryID]; ok {
			c := c
			attempts[i].Category = &c
		}
	}
	return attempts, nil
}

func (s *QuizService) Answers(ctx context.Context, attemptID string) ([]domain.QuizAnswer, error) {
	if _, err := s.attempts.Attempt(ctx, attemptID); err != nil {
		return nil, err
	}
	return s.attempts.Answers(ctx, attemptID)
}

// Standing ranks a stored attempt among its siblings.
func (s *QuizService) Standing(ctx context.Context, attemptID string) (domain.Standing, error) {
	attempt, err := s.attempts.Attempt(ctx, attemptID)
	if err != nil {
		return domain.Standing{}, err
	}
	return s.ranker.Rank(ctx, attempt)
}

func (s *QuizService) Leaderboard(ctx context.Context, categoryID, rawQuizType string, limit int) (domain.Leaderboard, error) {
	quizType, err := domain.ParseQuizType(rawQuizType)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	lb, err := s.ranker.Leaderboard(ctx, categoryID, quizType, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("leaderboard: %w", err)
	}
	return lb, nil
}
