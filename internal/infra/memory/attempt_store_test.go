package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-quiz-service/internal/domain"
)

func TestAttemptStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := store.CreateAttempt(ctx, domain.NewAttempt{StudentName: "Asha", CategoryID: "physics", QuizType: domain.QuizShort, Score: 50, CompletedAt: base})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected assigned id")
	}
	second, _ := store.CreateAttempt(ctx, domain.NewAttempt{StudentName: "Ravi", CategoryID: "physics", QuizType: domain.QuizShort, Score: 75, CompletedAt: base.Add(time.Minute)})

	got, err := store.Attempt(ctx, first.ID)
	if err != nil || got.StudentName != "Asha" {
		t.Fatalf("expected Asha's attempt, got %+v err=%v", got, err)
	}
	if _, err := store.Attempt(ctx, "missing"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	all, _ := store.Attempts(ctx)
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}
}

func TestAttemptStoreAnswers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewAttemptStoreWithClock(func() time.Time { return now })

	attempt, _ := store.CreateAttempt(ctx, domain.NewAttempt{CategoryID: "physics", QuizType: domain.QuizShort})
	if !attempt.CompletedAt.Equal(now) {
		t.Fatalf("expected completion stamped by store clock")
	}
	saved, err := store.SaveAnswers(ctx, attempt.ID, []domain.QuizAnswer{
		{QuestionID: "p1", SelectedAnswer: domain.OptionA, IsCorrect: true},
		{QuestionID: "p2", SelectedAnswer: domain.OptionC},
	})
	if err != nil {
		t.Fatalf("save answers: %v", err)
	}
	if len(saved) != 2 || saved[0].ID == "" || saved[0].AttemptID != attempt.ID {
		t.Fatalf("unexpected saved answers %+v", saved)
	}
	answers, _ := store.Answers(ctx, attempt.ID)
	if len(answers) != 2 || answers[1].QuestionID != "p2" {
		t.Fatalf("unexpected answers %+v", answers)
	}
	if _, err := store.SaveAnswers(ctx, "missing", nil); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
