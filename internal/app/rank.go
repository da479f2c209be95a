package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"campus-quiz-service/internal/domain"
)

// AttemptLister is the read side the rank calculator needs.
type AttemptLister interface {
	Attempts(ctx context.Context) ([]domain.QuizAttempt, error)
}

// RankCalculator derives standings among attempts of the same category and quiz type.
type RankCalculator struct {
	attempts AttemptLister
	now      func() time.Time
}

func NewRankCalculator(attempts AttemptLister) *RankCalculator {
	return &RankCalculator{attempts: attempts, now: time.Now}
}

// Rank returns an unavailable standing, never a made-up one, when siblings cannot be fetched.
func (r *RankCalculator) Rank(ctx context.Context, attempt domain.QuizAttempt) (domain.Standing, error) {
	all, err := r.attempts.Attempts(ctx)
	if err != nil {
		return domain.Standing{}, fmt.Errorf("list attempts for rank: %w", err)
	}
	return Standings(Siblings(all, attempt.CategoryID, attempt.QuizType), attempt.ID), nil
}

// Leaderboard lists the top attempts for a category and quiz type; limit <= 0 means all.
func (r *RankCalculator) Leaderboard(ctx context.Context, categoryID string, quizType domain.QuizType, limit int) (domain.Leaderboard, error) {
	all, err := r.attempts.Attempts(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list attempts for leaderboard: %w", err)
	}
	ranked := Siblings(all, categoryID, quizType)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for i, a := range ranked {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			AttemptID:   a.ID,
			StudentName: a.StudentName,
			Score:       a.Score,
			TimeTaken:   a.TimeTaken,
		})
	}
	return domain.Leaderboard{
		CategoryID: categoryID,
		QuizType:   quizType,
		Entries:    entries,
		UpdatedAt:  r.now(),
	}, nil
}

// Siblings filters to one category and quiz type and orders by score descending.
// Equal scores keep their fetch order.
func Siblings(all []domain.QuizAttempt, categoryID string, quizType domain.QuizType) []domain.QuizAttempt {
	out := make([]domain.QuizAttempt, 0, len(all))
	for _, a := range all {
		if a.CategoryID == categoryID && a.QuizType == quizType {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Standings locates attemptID in an ordered sibling list.
// A sole attempt ranks 1 with percentile 0.
func Standings(ordered []domain.QuizAttempt, attemptID string) domain.Standing {
	for i, a := range ordered {
		if a.ID != attemptID {
			continue
		}
		rank := i + 1
		total := len(ordered)
		return domain.Standing{
			Rank:          rank,
			TotalAttempts: total,
			Percentile:    int(math.Round(float64(total-rank) / float64(total) * 100)),
			Available:     true,
		}
	}
	return domain.Standing{TotalAttempts: len(ordered)}
}

// Tier buckets a rank into the bands shown on the result page.
func Tier(rank, total int) string {
	r, n := float64(rank), float64(total)
	switch {
	case r <= n*0.1:
		return "Top 10%"
	case r <= n*0.25:
		return "Top 25%"
	case r <= n*0.5:
		return "Top 50%"
	}
	return "Bottom 50%"
}
