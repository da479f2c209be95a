package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campus-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID             string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	StudentName    string    `bun:"student_name,notnull"`
	StudentEmail   string    `bun:"student_email,notnull"`
	StudentMobile  string    `bun:"student_mobile,notnull"`
	CategoryID     string    `bun:"category_id,notnull"`
	QuizType       string    `bun:"quiz_type,notnull"`
	TotalQuestions int       `bun:"total_questions"`
	CorrectAnswers int       `bun:"correct_answers"`
	WrongAnswers   int       `bun:"wrong_answers"`
	TimeTaken      int       `bun:"time_taken"`
	Score          float64   `bun:"score"`
	Accuracy       float64   `bun:"accuracy"`
	StartedAt      time.Time `bun:"started_at,nullzero,default:current_timestamp"`
	CompletedAt    time.Time `bun:"completed_at,nullzero,default:current_timestamp"`
}

func (r attemptRow) toDomain() domain.QuizAttempt {
	return domain.QuizAttempt{
		ID: r.ID,
		NewAttempt: domain.NewAttempt{
			StudentName:    r.StudentName,
			StudentEmail:   r.StudentEmail,
			StudentMobile:  r.StudentMobile,
			CategoryID:     r.CategoryID,
			QuizType:       domain.QuizType(r.QuizType),
			TotalQuestions: r.TotalQuestions,
			CorrectAnswers: r.CorrectAnswers,
			WrongAnswers:   r.WrongAnswers,
			TimeTaken:      r.TimeTaken,
			Score:          r.Score,
			Accuracy:       r.Accuracy,
			StartedAt:      r.StartedAt,
			CompletedAt:    r.CompletedAt,
		},
	}
}

type answerRow struct {
	bun.BaseModel `bun:"table:quiz_answers,alias:qans"`

	ID             string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	AttemptID      string    `bun:"attempt_id,type:uuid,notnull"`
	QuestionID     string    `bun:"question_id,notnull"`
	SelectedAnswer string    `bun:"selected_answer,notnull"`
	IsCorrect      bool      `bun:"is_correct"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func (r answerRow) toDomain() domain.QuizAnswer {
	return domain.QuizAnswer{
		ID:             r.ID,
		AttemptID:      r.AttemptID,
		QuestionID:     r.QuestionID,
		SelectedAnswer: domain.Option(r.SelectedAnswer),
		IsCorrect:      r.IsCorrect,
		CreatedAt:      r.CreatedAt,
	}
}

// AttemptStore persists attempts and answers through bun.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.NewAttempt) (domain.QuizAttempt, error) {
	row := &attemptRow{
		StudentName:    attempt.StudentName,
		StudentEmail:   attempt.StudentEmail,
		StudentMobile:  attempt.StudentMobile,
		CategoryID:     attempt.CategoryID,
		QuizType:       string(attempt.QuizType),
		TotalQuestions: attempt.TotalQuestions,
		CorrectAnswers: attempt.CorrectAnswers,
		WrongAnswers:   attempt.WrongAnswers,
		TimeTaken:      attempt.TimeTaken,
		Score:          attempt.Score,
		Accuracy:       attempt.Accuracy,
		StartedAt:      attempt.StartedAt,
		CompletedAt:    attempt.CompletedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return row.toDomain(), nil
}

func (s *AttemptStore) Attempt(ctx context.Context, id string) (domain.QuizAttempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).Where("qa.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("select attempt: %w", err)
	}
	return row.toDomain(), nil
}

// Attempts lists every attempt, newest completion first.
func (s *AttemptStore) Attempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	var rows []attemptRow
	if err := s.db.NewSelect().Model(&rows).Order("qa.completed_at DESC", "qa.id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.QuizAttempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// SaveAnswers writes all answers in one transaction; an unknown attempt id fails the whole batch.
func (s *AttemptStore) SaveAnswers(ctx context.Context, attemptID string, answers []domain.QuizAnswer) ([]domain.QuizAnswer, error) {
	if len(answers) == 0 {
		if _, err := s.Attempt(ctx, attemptID); err != nil {
			return nil, err
		}
		return []domain.QuizAnswer{}, nil
	}
	rows := make([]answerRow, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, answerRow{
			AttemptID:      attemptID,
			QuestionID:     a.QuestionID,
			SelectedAnswer: string(a.SelectedAnswer),
			IsCorrect:      a.IsCorrect,
		})
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*attemptRow)(nil)).Where("qa.id = ?", attemptID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrAttemptNotFound
		}
		_, err = tx.NewInsert().Model(&rows).Returning("*").Exec(ctx)
		return err
	})
	if errors.Is(err, domain.ErrAttemptNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("insert answers: %w", err)
	}

	saved := make([]domain.QuizAnswer, 0, len(rows))
	for _, r := range rows {
		saved = append(saved, r.toDomain())
	}
	return saved, nil
}

func (s *AttemptStore) Answers(ctx context.Context, attemptID string) ([]domain.QuizAnswer, error) {
	var rows []answerRow
	if err := s.db.NewSelect().Model(&rows).Where("qans.attempt_id = ?", attemptID).Order("qans.created_at", "qans.id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]domain.QuizAnswer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
