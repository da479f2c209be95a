package domain

import (
	"encoding/json"
	"time"
)

// Question models an MCQ question with four fixed options and one correct letter.
type Question struct {
	ID            string       `json:"id" yaml:"id"`
	CategoryID    string       `json:"category_id" yaml:"category_id"`
	Prompt        string       `json:"question" yaml:"question"`
	Type          QuestionType `json:"question_type" yaml:"question_type"`
	OptionA       string       `json:"option_a" yaml:"option_a"`
	OptionB       string       `json:"option_b" yaml:"option_b"`
	OptionC       string       `json:"option_c" yaml:"option_c"`
	OptionD       string       `json:"option_d" yaml:"option_d"`
	CorrectAnswer Option       `json:"correct_answer" yaml:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Difficulty    Difficulty   `json:"difficulty" yaml:"difficulty"`
	CreatedAt     time.Time    `json:"created_at" yaml:"created_at,omitempty"`
}

// Option returns the text shown for an answer letter.
func (q Question) Option(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// View strips the answer key for student-facing payloads.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Type:       q.Type,
		Options:    [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD},
		Difficulty: q.Difficulty,
	}
}

// QuestionView is a Question without its correct answer or explanation.
type QuestionView struct {
	ID         string       `json:"id"`
	Prompt     string       `json:"question"`
	Type       QuestionType `json:"question_type"`
	Options    [4]string    `json:"options"`
	Difficulty Difficulty   `json:"difficulty"`
}

// Category groups questions under a subject or exam track.
type Category struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Type      CategoryType `json:"type" yaml:"type"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at,omitempty"`
}

// MarshalJSON adds the display label next to the stored type tag.
func (c Category) MarshalJSON() ([]byte, error) {
	type plain Category
	return json.Marshal(struct {
		plain
		TypeLabel string `json:"type_label"`
	}{plain(c), c.Type.Label()})
}

// NewAttempt is the attempt payload before the store assigns id and timestamps.
type NewAttempt struct {
	StudentName    string    `json:"student_name"`
	StudentEmail   string    `json:"student_email"`
	StudentMobile  string    `json:"student_mobile"`
	CategoryID     string    `json:"category_id"`
	QuizType       QuizType  `json:"quiz_type"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	WrongAnswers   int       `json:"wrong_answers"`
	TimeTaken      int       `json:"time_taken"`
	Score          float64   `json:"score"`
	Accuracy       float64   `json:"accuracy"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// QuizAttempt is a persisted, immutable quiz outcome.
type QuizAttempt struct {
	ID string `json:"id"`
	NewAttempt
	Category *Category `json:"categories,omitempty"`
}

// QuizAnswer is one answered question of a persisted attempt.
type QuizAnswer struct {
	ID             string    `json:"id"`
	AttemptID      string    `json:"attempt_id"`
	QuestionID     string    `json:"question_id"`
	SelectedAnswer Option    `json:"selected_answer"`
	IsCorrect      bool      `json:"is_correct"`
	CreatedAt      time.Time `json:"created_at"`
}

// Standing is an attempt's position among attempts sharing category and quiz type.
type Standing struct {
	Rank          int  `json:"rank"`
	TotalAttempts int  `json:"total_attempts"`
	Percentile    int  `json:"percentile"`
	Available     bool `json:"available"`
}

// LeaderboardEntry is a snapshot-friendly view of one attempt.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	AttemptID   string  `json:"attempt_id"`
	StudentName string  `json:"student_name"`
	Score       float64 `json:"score"`
	TimeTaken   int     `json:"time_taken"`
}

// Leaderboard captures the ordered attempts for a category and quiz type.
type Leaderboard struct {
	CategoryID string             `json:"category_id"`
	QuizType   QuizType           `json:"quiz_type"`
	Entries    []LeaderboardEntry `json:"entries"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
