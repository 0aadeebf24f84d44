package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OptionLabel identifies one answer option of a multiple-choice question.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// OptionLabels is the fixed label set, in display order.
var OptionLabels = []OptionLabel{OptionA, OptionB, OptionC, OptionD}

// ParseOptionLabel normalizes a submitted answer. Unknown labels report false.
func ParseOptionLabel(s string) (OptionLabel, bool) {
	label := OptionLabel(strings.ToUpper(strings.TrimSpace(s)))
	switch label {
	case OptionA, OptionB, OptionC, OptionD:
		return label, true
	}
	return "", false
}

// Difficulty is an ordered difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Rank orders difficulties; unknown values rank 0.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	}
	return 0
}

// Question is a bank question as stored. The exam engine only reads it.
type Question struct {
	ID            uuid.UUID   `json:"id"`
	QuestionText  string      `json:"question_text"`
	Options       []string    `json:"options"`
	CorrectOption OptionLabel `json:"correct_option"`
	Explanation   string      `json:"explanation,omitempty"`
	Difficulty    Difficulty  `json:"difficulty"`
	Category      string      `json:"category"`
	Subject       string      `json:"subject"`
	Area          string      `json:"area,omitempty"`
	Course        string      `json:"course"`
	IsActive      bool        `json:"is_active"`
	CreatedBy     int         `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

var (
	ErrOptionCount       = errors.New("question must have between 2 and 4 options")
	ErrCorrectOptionGone = errors.New("correct option does not reference a populated option")
)

// Validate checks the option count and that the correct label points at a
// populated option.
func (q *Question) Validate() error {
	if len(q.Options) < 2 || len(q.Options) > len(OptionLabels) {
		return ErrOptionCount
	}
	for i, label := range OptionLabels[:len(q.Options)] {
		if label == q.CorrectOption {
			if q.Options[i] == "" {
				return ErrCorrectOptionGone
			}
			return nil
		}
	}
	return ErrCorrectOptionGone
}

// Option is one labelled choice as shown to a student.
type Option struct {
	Label OptionLabel `json:"label"`
	Text  string      `json:"text"`
}

// QuestionForStudent is a question without the correct answer or explanation.
type QuestionForStudent struct {
	ID           uuid.UUID  `json:"id"`
	QuestionText string     `json:"question_text"`
	Options      []Option   `json:"options"`
	Difficulty   Difficulty `json:"difficulty"`
	Category     string     `json:"category"`
}

// Redact strips the answer key and explanation.
func (q *Question) Redact() QuestionForStudent {
	opts := make([]Option, 0, len(q.Options))
	for i, text := range q.Options {
		if i >= len(OptionLabels) || text == "" {
			continue
		}
		opts = append(opts, Option{Label: OptionLabels[i], Text: text})
	}
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      opts,
		Difficulty:   q.Difficulty,
		Category:     q.Category,
	}
}
