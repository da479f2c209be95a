package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads a category's questions from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

const selectQuestions = `
SELECT id, category_id, question, question_type, option_a, option_b, option_c, option_d,
       correct_answer, COALESCE(explanation, ''), difficulty, created_at
FROM questions
WHERE category_id = $1
ORDER BY created_at, id`

func (l *QuestionLoader) LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, selectQuestions, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var (
			q          domain.Question
			qType      string
			answer     string
			difficulty string
		)
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.Prompt, &qType, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&answer, &q.Explanation, &difficulty, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qType)
		q.CorrectAnswer = domain.Option(answer)
		q.Difficulty = domain.Difficulty(difficulty)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// CategoryStore reads categories from Postgres.
type CategoryStore struct {
	pool *pgxpool.Pool
}

func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

func (s *CategoryStore) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, type, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryStore) Category(ctx context.Context, id string) (domain.Category, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, type, created_at FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, err
}

// scanCategory fails on a stored type outside the known set instead of guessing one.
func scanCategory(row pgx.Row) (domain.Category, error) {
	var (
		c       domain.Category
		rawType string
	)
	if err := row.Scan(&c.ID, &c.Name, &rawType, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, err
		}
		return domain.Category{}, fmt.Errorf("scan category: %w", err)
	}
	t, err := domain.ParseCategoryType(rawType)
	if err != nil {
		return domain.Category{}, fmt.Errorf("category %s: %w", c.ID, err)
	}
	c.Type = t
	return c, nil
}
