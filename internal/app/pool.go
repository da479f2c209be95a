package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"campus-quiz-service/internal/domain"
)

// QuestionPool draws a shuffled, capped question set for a quiz session.
type QuestionPool struct {
	questions QuestionRepository

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionPool(questions QuestionRepository) *QuestionPool {
	return &QuestionPool{
		questions: questions,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Draw returns at most quizType.QuestionCap() questions of the category in random order.
// On a store error it returns an empty pool together with the error.
func (p *QuestionPool) Draw(ctx context.Context, categoryID string, quizType domain.QuizType) ([]domain.Question, error) {
	all, err := p.questions.Questions(ctx, categoryID)
	if err != nil {
		return []domain.Question{}, fmt.Errorf("draw questions for category %s: %w", categoryID, err)
	}

	// Never shuffle the repository's slice in place; it may be a shared cache entry.
	drawn := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if q.CategoryID == categoryID {
			drawn = append(drawn, q)
		}
	}

	p.mu.Lock()
	p.rnd.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	p.mu.Unlock()

	if limit := quizType.QuestionCap(); len(drawn) > limit {
		drawn = drawn[:limit]
	}
	return drawn, nil
}
