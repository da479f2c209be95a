package postgres

import (
	"context"
	"fmt"
	"time"

	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/seed"
	"github.com/uptrace/bun"
)

type categoryRow struct {
	bun.BaseModel `bun:"table:categories"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Type      string    `bun:"type,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID            string    `bun:"id,pk"`
	CategoryID    string    `bun:"category_id,notnull"`
	Question      string    `bun:"question,notnull"`
	QuestionType  string    `bun:"question_type,notnull"`
	OptionA       string    `bun:"option_a,notnull"`
	OptionB       string    `bun:"option_b,notnull"`
	OptionC       string    `bun:"option_c,notnull"`
	OptionD       string    `bun:"option_d,notnull"`
	CorrectAnswer string    `bun:"correct_answer,notnull"`
	Explanation   string    `bun:"explanation,nullzero"`
	Difficulty    string    `bun:"difficulty,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// ImportResult counts upserted rows.
type ImportResult struct {
	Categories int
	Questions  int
}

// Import upserts seed categories and questions in one transaction.
func Import(ctx context.Context, db *bun.DB, data seed.Data) (ImportResult, error) {
	if err := data.Validate(); err != nil {
		return ImportResult{}, err
	}
	categories := make([]categoryRow, 0, len(data.Categories))
	for _, c := range data.Categories {
		categories = append(categories, categoryRow{ID: c.ID, Name: c.Name, Type: c.Type.String(), CreatedAt: c.CreatedAt})
	}
	questions := make([]questionRow, 0, len(data.Questions))
	for _, q := range data.Questions {
		questions = append(questions, toQuestionRow(q))
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(categories) > 0 {
			if _, err := tx.NewInsert().Model(&categories).
				On("CONFLICT (id) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("type = EXCLUDED.type").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert categories: %w", err)
			}
		}
		if len(questions) > 0 {
			if _, err := tx.NewInsert().Model(&questions).
				On("CONFLICT (id) DO UPDATE").
				Set("category_id = EXCLUDED.category_id").
				Set("question = EXCLUDED.question").
				Set("question_type = EXCLUDED.question_type").
				Set("option_a = EXCLUDED.option_a").
				Set("option_b = EXCLUDED.option_b").
				Set("option_c = EXCLUDED.option_c").
				Set("option_d = EXCLUDED.option_d").
				Set("correct_answer = EXCLUDED.correct_answer").
				Set("explanation = EXCLUDED.explanation").
				Set("difficulty = EXCLUDED.difficulty").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert questions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Categories: len(categories), Questions: len(questions)}, nil
}

func toQuestionRow(q domain.Question) questionRow {
	qType := string(q.Type)
	if qType == "" {
		qType = string(domain.QuestionText)
	}
	difficulty := string(q.Difficulty)
	if difficulty == "" {
		difficulty = string(domain.DifficultyMedium)
	}
	return questionRow{
		ID:            q.ID,
		CategoryID:    q.CategoryID,
		Question:      q.Prompt,
		QuestionType:  qType,
		OptionA:       q.OptionA,
		OptionB:       q.OptionB,
		OptionC:       q.OptionC,
		OptionD:       q.OptionD,
		CorrectAnswer: string(q.CorrectAnswer),
		Explanation:   q.Explanation,
		Difficulty:    difficulty,
		CreatedAt:     q.CreatedAt,
	}
}
