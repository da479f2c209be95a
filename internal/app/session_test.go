package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/infra/memory"
)

func TestLoadWithoutQuestionsEndsInNoQuestions(t *testing.T) {
	session := newTestSession(t, nil, memory.NewAttemptStore())
	if got := session.State(); got != app.StateNoQuestions {
		t.Fatalf("expected no_questions, got %s", got)
	}
	if err := session.Next(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestLoadFailureEndsInNoQuestions(t *testing.T) {
	pool := app.NewQuestionPool(failingQuestions{})
	session := app.NewSession("s1", testStudent(), "physics", domain.QuizShort, app.SessionDeps{
		Pool:     pool,
		Attempts: memory.NewAttemptStore(),
		Ticks:    manualTicks,
	})
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load should degrade, got %v", err)
	}
	snap := session.Snapshot()
	if snap.State != app.StateNoQuestions || snap.Total != 0 || snap.Current != nil {
		t.Fatalf("expected empty no_questions snapshot, got %+v", snap)
	}
}

func TestNavigationBounds(t *testing.T) {
	session := newTestSession(t, testQuestions(), memory.NewAttemptStore())

	snap := session.Snapshot()
	if snap.State != app.StateInProgress || snap.Cursor != 0 || snap.Total != 4 {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
	if snap.Clock != "00:30:00" {
		t.Fatalf("expected 30 minute clock, got %s", snap.Clock)
	}

	if err := session.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if session.Snapshot().Cursor != 0 {
		t.Fatalf("previous at 0 must be a no-op")
	}
	if _, err := session.RequestSubmit(); !errors.Is(err, domain.ErrSubmitUnavailable) {
		t.Fatalf("expected submit unavailable before last question, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := session.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	snap = session.Snapshot()
	if snap.Cursor != 3 || !snap.CanSubmit {
		t.Fatalf("expected last question with submit available, got %+v", snap)
	}
	_ = session.Next()
	if session.Snapshot().Cursor != 3 {
		t.Fatalf("next at last must be a no-op")
	}

	if err := session.Jump(1); err != nil || session.Snapshot().Cursor != 1 {
		t.Fatalf("jump to 1 failed: %v", err)
	}
	if err := session.Jump(4); !errors.Is(err, domain.ErrInvalidQuestionIndex) {
		t.Fatalf("expected invalid index, got %v", err)
	}
	if session.Snapshot().Cursor != 1 {
		t.Fatalf("failed jump must leave cursor unchanged")
	}
}

func TestSelectKeepsTrackerInsidePool(t *testing.T) {
	session := newTestSession(t, testQuestions(), memory.NewAttemptStore())
	current := session.Snapshot().Current.ID

	if err := session.Select(current, "b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := session.Select(current, "D"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if err := session.Select("ghost", "A"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if err := session.Select(current, "E"); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}

	snap := session.Snapshot()
	if snap.Answered != 1 || snap.Unanswered != 3 || snap.Selected[current] != domain.OptionD {
		t.Fatalf("unexpected tracker state %+v", snap)
	}
	if snap.Cursor != 0 {
		t.Fatalf("select must not move the cursor")
	}
}

func TestConfirmSubmitFullScore(t *testing.T) {
	attempts := &countingAttempts{AttemptStore: memory.NewAttemptStore()}
	clock := newFakeClock()
	session := newTestSessionWithClock(t, testQuestions(), attempts, clock)

	answerAllCorrectly(t, session)
	clock.Advance(95 * time.Second)

	summary, err := session.RequestSubmit()
	if err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if summary.Answered != 4 || summary.Unanswered != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if err := session.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	snap := session.Snapshot()
	if snap.State != app.StateCompleted || snap.Result == nil {
		t.Fatalf("expected completed with result, got %+v", snap)
	}
	a := snap.Result.Attempt
	if a.CorrectAnswers != 4 || a.WrongAnswers != 0 || a.TotalQuestions != 4 || a.Score != 100 || a.Accuracy != 100 {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if a.TimeTaken != 95 || a.StudentEmail != "asha@school.in" {
		t.Fatalf("unexpected attempt metadata %+v", a)
	}
	if snap.Result.Grade != "A+" || snap.Result.Elapsed != "1m 35s" || len(snap.Result.Review) != 4 {
		t.Fatalf("unexpected result presentation %+v", snap.Result)
	}
	if st := snap.Result.Standing; st.Rank != 1 || st.Percentile != 0 || !st.Available {
		t.Fatalf("expected sole attempt rank 1 percentile 0, got %+v", st)
	}

	answers, _ := attempts.Answers(context.Background(), a.ID)
	if len(answers) != 4 {
		t.Fatalf("expected 4 stored answers, got %d", len(answers))
	}
}

func TestCancelSubmitResumes(t *testing.T) {
	session := newTestSession(t, testQuestions(), memory.NewAttemptStore())
	_ = session.Jump(3)
	if _, err := session.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if err := session.Next(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("navigation during confirmation should be rejected, got %v", err)
	}
	if err := session.CancelSubmit(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if session.State() != app.StateInProgress {
		t.Fatalf("expected back in progress")
	}
	if err := session.Previous(); err != nil || session.Snapshot().Cursor != 2 {
		t.Fatalf("expected review to resume, err=%v", err)
	}
}

func TestDoubleSubmitCreatesOneAttempt(t *testing.T) {
	attempts := &countingAttempts{AttemptStore: memory.NewAttemptStore()}
	session := newTestSession(t, testQuestions(), attempts)
	_ = session.Jump(3)
	if _, err := session.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if session.Submitted() {
		t.Fatalf("guard must stay open until a submission is confirmed")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := session.ConfirmSubmit(context.Background()); err != nil {
				t.Errorf("confirm: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for session.Tick() {
		}
	}()
	wg.Wait()

	if got := attempts.creates.Load(); got != 1 {
		t.Fatalf("expected exactly one stored attempt, got %d", got)
	}
	if session.State() != app.StateCompleted {
		t.Fatalf("expected completed, got %s", session.State())
	}
	if !session.Submitted() {
		t.Fatalf("expected submit guard to be claimed")
	}
}

func TestTimerExpiryCompletesWithoutSubmit(t *testing.T) {
	attempts := &countingAttempts{AttemptStore: memory.NewAttemptStore()}
	clock := newFakeClock()
	session := newTestSessionWithClock(t, testQuestions(), attempts, clock)

	for i := 0; i < 1799; i++ {
		clock.Advance(time.Second)
		if !session.Tick() {
			t.Fatalf("timer stopped early at tick %d", i+1)
		}
	}
	if session.State() != app.StateInProgress {
		t.Fatalf("expected still in progress one second before the limit")
	}
	clock.Advance(time.Second)
	session.Tick()

	snap := session.Snapshot()
	if snap.State != app.StateCompleted {
		t.Fatalf("expected forced completion, got %s", snap.State)
	}
	a := snap.Result.Attempt
	if a.CorrectAnswers != 0 || a.WrongAnswers != 4 || a.Score != 0 || a.TimeTaken != 1800 {
		t.Fatalf("unexpected forced attempt %+v", a)
	}
	if snap.RemainingSeconds != 0 || snap.Clock != "00:00:00" {
		t.Fatalf("expected clock at zero, got %s", snap.Clock)
	}
	if attempts.creates.Load() != 1 {
		t.Fatalf("expected one stored attempt, got %d", attempts.creates.Load())
	}
}

func TestTimerExpiryDuringConfirmation(t *testing.T) {
	attempts := &countingAttempts{AttemptStore: memory.NewAttemptStore()}
	session := newTestSession(t, testQuestions(), attempts)
	_ = session.Jump(3)
	_, _ = session.RequestSubmit()

	for session.Tick() {
	}
	if session.State() != app.StateCompleted {
		t.Fatalf("expected expiry to bypass confirmation, got %s", session.State())
	}
	if err := session.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("late confirm should be ignored, got %v", err)
	}
	if attempts.creates.Load() != 1 {
		t.Fatalf("expected one stored attempt, got %d", attempts.creates.Load())
	}
}

func TestPersistenceFailureBlocksUntilRetry(t *testing.T) {
	attempts := &countingAttempts{AttemptStore: memory.NewAttemptStore()}
	attempts.failCreates.Store(1)
	session := newTestSession(t, testQuestions(), attempts)
	answerAllCorrectly(t, session)
	_, _ = session.RequestSubmit()

	if err := session.ConfirmSubmit(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	snap := session.Snapshot()
	if snap.State != app.StateSubmitting || snap.Error == "" {
		t.Fatalf("expected blocked submitting state with error, got %+v", snap)
	}
	if err := session.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("repeat confirm should be ignored, got %v", err)
	}
	if session.Tick() {
		t.Fatalf("timer must be stopped once submitting")
	}

	if err := session.RetrySubmit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	snap = session.Snapshot()
	if snap.State != app.StateCompleted || snap.Error != "" {
		t.Fatalf("expected completed after retry, got %+v", snap)
	}
	if snap.Result.Attempt.Score != 100 {
		t.Fatalf("retry must reuse the frozen score, got %v", snap.Result.Attempt.Score)
	}
	if attempts.creates.Load() != 1 {
		t.Fatalf("expected one stored attempt, got %d", attempts.creates.Load())
	}
	if err := session.RetrySubmit(context.Background()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("retry after completion should be rejected, got %v", err)
	}
}

func TestRankFailureCompletesWithUnavailableStanding(t *testing.T) {
	attempts := &countingAttempts{AttemptStore: memory.NewAttemptStore()}
	attempts.failList.Store(true)
	session := newTestSession(t, testQuestions(), attempts)
	_ = session.Jump(3)
	_, _ = session.RequestSubmit()

	if err := session.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	snap := session.Snapshot()
	if snap.State != app.StateCompleted {
		t.Fatalf("expected completed, got %s", snap.State)
	}
	if snap.Result.Standing.Available || snap.Result.Standing.Rank != 0 {
		t.Fatalf("expected unavailable standing, got %+v", snap.Result.Standing)
	}
}

func TestExitStopsTimerAndDiscardsAnswers(t *testing.T) {
	session := newTestSession(t, testQuestions(), memory.NewAttemptStore())
	updates, cancel := session.Subscribe()
	defer cancel()
	<-updates

	current := session.Snapshot().Current.ID
	_ = session.Select(current, "A")
	session.Exit()

	snap := session.Snapshot()
	if snap.State != app.StateExited || snap.Answered != 0 {
		t.Fatalf("expected exited with no answers, got %+v", snap)
	}
	if session.Tick() {
		t.Fatalf("timer must be stopped after exit")
	}
	if err := session.Select(current, "B"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected session closed, got %v", err)
	}

	drained := 0
	for range updates {
		drained++
	}
	if drained == 0 {
		t.Fatalf("expected buffered updates before close")
	}
}

func TestExitDuringSubmitDropsLateResult(t *testing.T) {
	attempts := &blockingAttempts{
		AttemptStore: memory.NewAttemptStore(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	session := newTestSession(t, testQuestions(), attempts)
	_ = session.Jump(3)
	_, _ = session.RequestSubmit()

	done := make(chan error, 1)
	go func() { done <- session.ConfirmSubmit(context.Background()) }()

	<-attempts.entered
	if session.State() != app.StateSubmitting {
		t.Fatalf("expected submitting while save is in flight")
	}
	session.Exit()
	close(attempts.release)

	if err := <-done; !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected late result to be dropped, got %v", err)
	}
	if snap := session.Snapshot(); snap.State != app.StateExited || snap.Result != nil {
		t.Fatalf("expected exited without result, got %+v", snap)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	session := newTestSession(t, testQuestions(), memory.NewAttemptStore())
	updates, cancel := session.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.State != app.StateInProgress {
		t.Fatalf("expected initial in-progress snapshot, got %s", initial.State)
	}
	_ = session.Next()
	update := <-updates
	if update.Cursor != 1 {
		t.Fatalf("expected cursor update, got %+v", update)
	}
	session.Tick()
	tick := <-updates
	if tick.RemainingSeconds != 1799 {
		t.Fatalf("expected tick snapshot, got %d", tick.RemainingSeconds)
	}
}

// helpers

func manualTicks() (<-chan time.Time, func()) {
	return nil, func() {}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testStudent() domain.Student {
	return domain.Student{Name: "Asha", Email: "asha@school.in", Mobile: "9876543210"}
}

func testCategories() []domain.Category {
	return []domain.Category{{ID: "physics", Name: "Physics", Type: domain.CategorySubject}}
}

func testQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", CategoryID: "physics", Prompt: "Unit of force?", OptionA: "Newton", OptionB: "Joule", OptionC: "Watt", OptionD: "Pascal", CorrectAnswer: domain.OptionA},
		{ID: "q2", CategoryID: "physics", Prompt: "Unit of energy?", OptionA: "Newton", OptionB: "Joule", OptionC: "Watt", OptionD: "Pascal", CorrectAnswer: domain.OptionB},
		{ID: "q3", CategoryID: "physics", Prompt: "Unit of power?", OptionA: "Newton", OptionB: "Joule", OptionC: "Watt", OptionD: "Pascal", CorrectAnswer: domain.OptionC},
		{ID: "q4", CategoryID: "physics", Prompt: "Unit of pressure?", OptionA: "Newton", OptionB: "Joule", OptionC: "Watt", OptionD: "Pascal", CorrectAnswer: domain.OptionD},
	}
}

func newTestSession(t *testing.T, questions []domain.Question, attempts app.AttemptRepository) *app.Session {
	return newTestSessionWithClock(t, questions, attempts, newFakeClock())
}

func newTestSessionWithClock(t *testing.T, questions []domain.Question, attempts app.AttemptRepository, clock *fakeClock) *app.Session {
	t.Helper()
	catalog := memory.NewCatalog(testCategories(), questions)
	pool := app.NewQuestionPool(memory.NewQuestionRepository(catalog, time.Minute))
	session := app.NewSession("s1", testStudent(), "physics", domain.QuizShort, app.SessionDeps{
		Pool:     pool,
		Attempts: attempts,
		Ranker:   app.NewRankCalculator(attempts),
		Ticks:    manualTicks,
		Now:      clock.Now,
	})
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(session.Exit)
	return session
}

// answerAllCorrectly walks the shuffled pool and leaves the cursor on the last question.
func answerAllCorrectly(t *testing.T, session *app.Session) {
	t.Helper()
	key := map[string]domain.Option{}
	for _, q := range testQuestions() {
		key[q.ID] = q.CorrectAnswer
	}
	total := session.Snapshot().Total
	for i := 0; i < total; i++ {
		if err := session.Jump(i); err != nil {
			t.Fatalf("jump: %v", err)
		}
		id := session.Snapshot().Current.ID
		if err := session.Select(id, string(key[id])); err != nil {
			t.Fatalf("select: %v", err)
		}
	}
}

type failingQuestions struct{}

func (failingQuestions) Questions(context.Context, string) ([]domain.Question, error) {
	return nil, errors.New("store unreachable")
}

type countingAttempts struct {
	*memory.AttemptStore
	creates     atomic.Int32
	failCreates atomic.Int32
	failList    atomic.Bool
}

func (c *countingAttempts) CreateAttempt(ctx context.Context, a domain.NewAttempt) (domain.QuizAttempt, error) {
	if c.failCreates.Load() > 0 {
		c.failCreates.Add(-1)
		return domain.QuizAttempt{}, errors.New("insert failed")
	}
	c.creates.Add(1)
	return c.AttemptStore.CreateAttempt(ctx, a)
}

func (c *countingAttempts) Attempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	if c.failList.Load() {
		return nil, errors.New("list failed")
	}
	return c.AttemptStore.Attempts(ctx)
}

type blockingAttempts struct {
	*memory.AttemptStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAttempts) CreateAttempt(ctx context.Context, a domain.NewAttempt) (domain.QuizAttempt, error) {
	close(b.entered)
	<-b.release
	return b.AttemptStore.CreateAttempt(ctx, a)
}
