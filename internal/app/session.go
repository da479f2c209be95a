package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"campus-quiz-service/internal/domain"
)

// State is a quiz session lifecycle stage.
type State string

const (
	StateLoading          State = "loading"
	StateInProgress       State = "in_progress"
	StateConfirmingSubmit State = "confirming_submit"
	StateSubmitting       State = "submitting"
	StateCompleted        State = "completed"
	StateNoQuestions      State = "no_questions"
	StateExited           State = "exited"
)

// Terminal reports whether no further transition other than exit is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateNoQuestions || s == StateExited
}

const expirySubmitTimeout = 30 * time.Second

// SessionDeps are the collaborators a Session talks to.
type SessionDeps struct {
	Pool       *QuestionPool
	Attempts   AttemptRepository
	Ranker     *RankCalculator
	Ticks      TickSource
	Now        func() time.Time
	Logger     *slog.Logger
	// OnTerminal runs once the session reaches completed or no_questions, without the session lock.
	OnTerminal func(*Session)
}

// SubmitSummary is shown while the student confirms submission.
type SubmitSummary struct {
	Answered   int `json:"answered"`
	Unanswered int `json:"unanswered"`
	Total      int `json:"total"`
}

// Result is what the student sees once the attempt is stored.
type Result struct {
	Attempt  domain.QuizAttempt `json:"attempt"`
	Standing domain.Standing    `json:"standing"`
	Grade    string             `json:"grade"`
	Message  string             `json:"message"`
	Elapsed  string             `json:"elapsed"`
	Review   []ReviewItem       `json:"review"`
	Tier     string             `json:"tier,omitempty"`
}

// Snapshot is a point-in-time view of a session for clients.
type Snapshot struct {
	SessionID        string                   `json:"session_id"`
	State            State                    `json:"state"`
	CategoryID       string                   `json:"category_id"`
	QuizType         domain.QuizType          `json:"quiz_type"`
	Cursor           int                      `json:"cursor"`
	Total            int                      `json:"total"`
	Current          *domain.QuestionView     `json:"current,omitempty"`
	Selected         map[string]domain.Option `json:"selected"`
	Answered         int                      `json:"answered"`
	Unanswered       int                      `json:"unanswered"`
	RemainingSeconds int                      `json:"remaining_seconds"`
	Clock            string                   `json:"clock"`
	CanSubmit        bool                     `json:"can_submit"`
	Error            string                   `json:"error,omitempty"`
	Result           *Result                  `json:"result,omitempty"`
}

// Session is one student's timed quiz. All methods are safe for concurrent use;
// the timer goroutine and client actions race only through the submitted guard.
type Session struct {
	id         string
	student    domain.Student
	categoryID string
	quizType   domain.QuizType

	pool     *QuestionPool
	attempts AttemptRepository
	ranker   *RankCalculator
	ticks    TickSource
	now      func() time.Time
	log      *slog.Logger

	onTerminal func(*Session)

	submitted atomic.Bool

	mu          sync.Mutex
	state       State
	questions   []domain.Question
	index       map[string]int
	cursor      int
	answers     *AnswerTracker
	timer       *Timer
	startedAt   time.Time
	pending     domain.NewAttempt
	frozen      map[string]domain.Option
	persisting  bool
	lastErr     error
	result      *Result
	subscribers map[chan Snapshot]struct{}
}

func NewSession(id string, student domain.Student, categoryID string, quizType domain.QuizType, deps SessionDeps) *Session {
	if deps.Ticks == nil {
		deps.Ticks = SecondTicker
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		id:          id,
		student:     student,
		categoryID:  categoryID,
		quizType:    quizType,
		pool:        deps.Pool,
		attempts:    deps.Attempts,
		ranker:      deps.Ranker,
		ticks:       deps.Ticks,
		now:         deps.Now,
		log:         deps.Logger.With("session_id", id, "category_id", categoryID, "quiz_type", quizType),
		onTerminal:  deps.OnTerminal,
		state:       StateLoading,
		answers:     NewAnswerTracker(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submitted reports whether a submission has claimed the one-shot guard.
func (s *Session) Submitted() bool { return s.submitted.Load() }

// Load draws the question pool and starts the timer. An empty or failed draw
// ends the session in StateNoQuestions rather than returning an error.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	s.mu.Unlock()

	questions, err := s.pool.Draw(ctx, s.categoryID, s.quizType)

	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if err != nil || len(questions) == 0 {
		if err != nil {
			s.log.Warn("question pool unavailable", "error", err)
		}
		s.state = StateNoQuestions
		s.broadcastLocked()
		s.mu.Unlock()
		s.terminated()
		return nil
	}

	s.questions = questions
	s.index = make(map[string]int, len(questions))
	for i, q := range questions {
		s.index[q.ID] = i
	}
	s.startedAt = s.now()
	s.timer = NewTimer(s.quizType.Duration(), s.onTick, s.onExpire)
	s.state = StateInProgress
	s.timer.Start(s.ticks)
	s.log.Info("quiz started", "questions", len(questions))
	s.broadcastLocked()
	s.mu.Unlock()
	return nil
}

// Next moves forward one question; a no-op on the last question.
func (s *Session) Next() error {
	return s.navigate(func(cursor, n int) (int, error) {
		if cursor < n-1 {
			return cursor + 1, nil
		}
		return cursor, nil
	})
}

// Previous moves back one question; a no-op on the first question.
func (s *Session) Previous() error {
	return s.navigate(func(cursor, _ int) (int, error) {
		if cursor > 0 {
			return cursor - 1, nil
		}
		return cursor, nil
	})
}

// Jump moves the cursor to a 0-based question index.
func (s *Session) Jump(index int) error {
	return s.navigate(func(cursor, n int) (int, error) {
		if index < 0 || index >= n {
			return cursor, fmt.Errorf("%w: %d", domain.ErrInvalidQuestionIndex, index)
		}
		return index, nil
	})
}

func (s *Session) navigate(move func(cursor, n int) (int, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStateLocked(StateInProgress); err != nil {
		return err
	}
	next, err := move(s.cursor, len(s.questions))
	if err != nil {
		return err
	}
	if next != s.cursor {
		s.cursor = next
		s.broadcastLocked()
	}
	return nil
}

// Select records the student's choice for a question without moving the cursor.
func (s *Session) Select(questionID, rawOption string) error {
	option, err := domain.ParseOption(rawOption)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStateLocked(StateInProgress); err != nil {
		return err
	}
	if _, ok := s.index[questionID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
	}
	s.answers.Select(questionID, option)
	s.broadcastLocked()
	return nil
}

// RequestSubmit opens the confirmation step; only allowed on the final question.
func (s *Session) RequestSubmit() (SubmitSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStateLocked(StateInProgress); err != nil {
		return SubmitSummary{}, err
	}
	if s.cursor != len(s.questions)-1 {
		return SubmitSummary{}, domain.ErrSubmitUnavailable
	}
	s.state = StateConfirmingSubmit
	s.broadcastLocked()
	return s.summaryLocked(), nil
}

// CancelSubmit returns to reviewing questions.
func (s *Session) CancelSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStateLocked(StateConfirmingSubmit); err != nil {
		return err
	}
	s.state = StateInProgress
	s.broadcastLocked()
	return nil
}

// ConfirmSubmit scores and stores the attempt. A second call, or a call that
// loses the race against timer expiry, is ignored and returns nil.
func (s *Session) ConfirmSubmit(ctx context.Context) error {
	return s.submit(ctx, false)
}

// RetrySubmit makes one more attempt to store a submission whose save failed.
func (s *Session) RetrySubmit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateSubmitting || s.persisting || s.lastErr == nil {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	s.persisting = true
	s.lastErr = nil
	pending, frozen := s.pending, s.frozen
	s.broadcastLocked()
	s.mu.Unlock()
	return s.persist(ctx, pending, frozen)
}

// Exit abandons the session from any state, stopping the timer and dropping answers.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateExited {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.answers.Reset()
	s.state = StateExited
	s.log.Info("quiz exited")
	s.broadcastLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Watched reports whether any client is subscribed to snapshots.
func (s *Session) Watched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) > 0
}

// Tick advances the countdown by one second; used to drive simulated time.
func (s *Session) Tick() bool {
	s.mu.Lock()
	timer := s.timer
	s.mu.Unlock()
	if timer == nil {
		return false
	}
	return timer.Tick()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	initial := s.snapshotLocked()
	ch <- initial
	if s.state == StateExited {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) onTick(int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress || s.state == StateConfirmingSubmit {
		s.broadcastLocked()
	}
}

func (s *Session) onExpire() {
	ctx, cancel := context.WithTimeout(context.Background(), expirySubmitTimeout)
	defer cancel()
	s.log.Info("time is up, submitting")
	if err := s.submit(ctx, true); err != nil {
		s.log.Error("timed submission failed", "error", err)
	}
}

// submit claims the one-shot guard, freezes answers and persists the scored attempt.
// forced submissions come from the timer and skip the confirmation step.
func (s *Session) submit(ctx context.Context, forced bool) error {
	s.mu.Lock()
	if s.submitted.Load() {
		s.mu.Unlock()
		return nil
	}
	switch {
	case s.state == StateConfirmingSubmit:
	case forced && s.state == StateInProgress:
	default:
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	s.submitted.Store(true)
	s.timer.Stop()

	completedAt := s.now()
	s.frozen = s.answers.Snapshot()
	outcome := Score(s.questions, s.frozen, s.startedAt, completedAt)
	s.pending = domain.NewAttempt{
		StudentName:    s.student.Name,
		StudentEmail:   s.student.Email,
		StudentMobile:  s.student.Mobile,
		CategoryID:     s.categoryID,
		QuizType:       s.quizType,
		TotalQuestions: outcome.Total,
		CorrectAnswers: outcome.Correct,
		WrongAnswers:   outcome.Wrong,
		TimeTaken:      outcome.TimeTaken,
		Score:          outcome.Score,
		Accuracy:       outcome.Accuracy,
		StartedAt:      s.startedAt,
		CompletedAt:    completedAt,
	}
	s.state = StateSubmitting
	s.persisting = true
	pending, frozen := s.pending, s.frozen
	s.broadcastLocked()
	s.mu.Unlock()

	return s.persist(ctx, pending, frozen)
}

func (s *Session) persist(ctx context.Context, pending domain.NewAttempt, frozen map[string]domain.Option) error {
	attempt, err := s.attempts.CreateAttempt(ctx, pending)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.persisting = false
		if s.state != StateSubmitting {
			return domain.ErrSessionClosed
		}
		s.lastErr = err
		s.log.Error("save quiz attempt", "error", err)
		s.broadcastLocked()
		return fmt.Errorf("save quiz attempt: %w", err)
	}

	if records := AnswerRecords(attempt.ID, s.questions, frozen); len(records) > 0 {
		if _, err := s.attempts.SaveAnswers(ctx, attempt.ID, records); err != nil {
			s.log.Warn("save quiz answers", "attempt_id", attempt.ID, "error", err)
		}
	}

	standing, err := s.ranker.Rank(ctx, attempt)
	if err != nil {
		s.log.Warn("rank unavailable", "attempt_id", attempt.ID, "error", err)
		standing = domain.Standing{}
	}
	tier := ""
	if standing.Available {
		tier = Tier(standing.Rank, standing.TotalAttempts)
	}

	result := &Result{
		Attempt:  attempt,
		Standing: standing,
		Grade:    Grade(attempt.Score),
		Message:  PerformanceMessage(attempt.Score),
		Elapsed:  FormatElapsed(attempt.TimeTaken),
		Review:   Review(s.questions, frozen),
		Tier:     tier,
	}

	s.mu.Lock()
	s.persisting = false
	if s.state != StateSubmitting {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.result = result
	s.state = StateCompleted
	s.log.Info("quiz completed", "attempt_id", attempt.ID, "score", attempt.Score, "rank", standing.Rank)
	s.broadcastLocked()
	s.mu.Unlock()
	s.terminated()
	return nil
}

func (s *Session) terminated() {
	if s.onTerminal != nil {
		s.onTerminal(s)
	}
}

func (s *Session) requireStateLocked(want State) error {
	if s.state == want {
		return nil
	}
	if s.state == StateExited {
		return domain.ErrSessionClosed
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidTransition, s.state)
}

func (s *Session) summaryLocked() SubmitSummary {
	total := len(s.questions)
	return SubmitSummary{
		Answered:   s.answers.Count(),
		Unanswered: s.answers.Unanswered(total),
		Total:      total,
	}
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot so a slow client cannot block the session
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	summary := s.summaryLocked()
	snap := Snapshot{
		SessionID:  s.id,
		State:      s.state,
		CategoryID: s.categoryID,
		QuizType:   s.quizType,
		Cursor:     s.cursor,
		Total:      summary.Total,
		Selected:   s.answers.Snapshot(),
		Answered:   summary.Answered,
		Unanswered: summary.Unanswered,
		Result:     s.result,
	}
	switch {
	case s.timer != nil:
		snap.RemainingSeconds = s.timer.Remaining()
	case s.state == StateLoading:
		snap.RemainingSeconds = int(s.quizType.Duration() / time.Second)
	}
	snap.Clock = FormatClock(snap.RemainingSeconds)
	if s.state == StateInProgress || s.state == StateConfirmingSubmit {
		view := s.questions[s.cursor].View()
		snap.Current = &view
		snap.CanSubmit = s.cursor == len(s.questions)-1
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if s.state == StateNoQuestions {
		snap.Error = domain.ErrNoQuestions.Error()
	}
	return snap
}
