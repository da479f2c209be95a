package app

import (
	"fmt"
	"time"

	"campus-quiz-service/internal/domain"
)

// Outcome is the scored result of a question pool and its answers.
type Outcome struct {
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	Wrong     int     `json:"wrong"`
	Score     float64 `json:"score"`
	Accuracy  float64 `json:"accuracy"`
	TimeTaken int     `json:"time_taken"`
}

// Score counts unanswered questions as wrong; score and accuracy share the same formula.
func Score(questions []domain.Question, answers map[string]domain.Option, startedAt, now time.Time) Outcome {
	out := Outcome{Total: len(questions)}
	for _, q := range questions {
		if selected, ok := answers[q.ID]; ok && selected == q.CorrectAnswer {
			out.Correct++
		}
	}
	out.Wrong = out.Total - out.Correct
	if out.Total > 0 {
		out.Score = float64(out.Correct) / float64(out.Total) * 100
	}
	out.Accuracy = out.Score

	if elapsed := now.Sub(startedAt); elapsed > 0 {
		out.TimeTaken = int(elapsed / time.Second)
	}
	return out
}

// ReviewItem is one row of the post-quiz detailed review.
type ReviewItem struct {
	QuestionID  string        `json:"question_id"`
	Prompt      string        `json:"question"`
	Selected    domain.Option `json:"selected_answer,omitempty"`
	Correct     domain.Option `json:"correct_answer"`
	IsCorrect   bool          `json:"is_correct"`
	Explanation string        `json:"explanation,omitempty"`
}

func Review(questions []domain.Question, answers map[string]domain.Option) []ReviewItem {
	items := make([]ReviewItem, 0, len(questions))
	for _, q := range questions {
		selected := answers[q.ID]
		items = append(items, ReviewItem{
			QuestionID:  q.ID,
			Prompt:      q.Prompt,
			Selected:    selected,
			Correct:     q.CorrectAnswer,
			IsCorrect:   selected != "" && selected == q.CorrectAnswer,
			Explanation: q.Explanation,
		})
	}
	return items
}

// AnswerRecords builds persistable rows for answered questions only, in pool order.
func AnswerRecords(attemptID string, questions []domain.Question, answers map[string]domain.Option) []domain.QuizAnswer {
	records := make([]domain.QuizAnswer, 0, len(answers))
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		records = append(records, domain.QuizAnswer{
			AttemptID:      attemptID,
			QuestionID:     q.ID,
			SelectedAnswer: selected,
			IsCorrect:      selected == q.CorrectAnswer,
		})
	}
	return records
}

func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B+"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C"
	}
	return "F"
}

func PerformanceMessage(score float64) string {
	switch {
	case score >= 90:
		return "Outstanding! You're a star!"
	case score >= 80:
		return "Excellent work! Keep it up!"
	case score >= 70:
		return "Good job! You're on the right track!"
	case score >= 60:
		return "Not bad! There's room for improvement!"
	case score >= 50:
		return "Keep practicing! You'll get better!"
	}
	return "Don't give up! Practice makes perfect!"
}

// FormatElapsed renders a duration like "1h 2m 3s", omitting hours when zero.
func FormatElapsed(seconds int) string {
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60
	if hrs > 0 {
		return fmt.Sprintf("%dh %dm %ds", hrs, mins, secs)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}
