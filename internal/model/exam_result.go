package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionResult is the per-question grading breakdown.
type QuestionResult struct {
	QuestionID      uuid.UUID   `json:"question_id"`
	QuestionText    string      `json:"question_text"`
	SubmittedAnswer OptionLabel `json:"submitted_answer"`
	CorrectAnswer   OptionLabel `json:"correct_answer"`
	IsCorrect       bool        `json:"is_correct"`
	Difficulty      Difficulty  `json:"difficulty"`
	Category        string      `json:"category"`
	Explanation     string      `json:"explanation,omitempty"`
}

// ExamResult is the immutable record of a graded attempt.
type ExamResult struct {
	ID             uuid.UUID        `json:"id"`
	SessionID      uuid.UUID        `json:"session_id"`
	UserID         int              `json:"user_id"`
	Course         string           `json:"course"`
	Subject        string           `json:"subject"`
	Area           string           `json:"area,omitempty"`
	Status         SessionStatus    `json:"status"`
	Score          int              `json:"score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Breakdown      []QuestionResult `json:"breakdown"`
	Violations     []Violation      `json:"violations"`
	ViolationCount int              `json:"violation_count"`
	WasFlagged     bool             `json:"was_flagged"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    time.Time        `json:"completed_at"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	CreatedAt      time.Time        `json:"created_at"`
}

// SubmitExamResponse mirrors the stored result but reports elapsed minutes.
type SubmitExamResponse struct {
	SessionID      uuid.UUID        `json:"session_id"`
	Status         SessionStatus    `json:"status"`
	Score          int              `json:"score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Breakdown      []QuestionResult `json:"breakdown"`
	ElapsedMinutes int              `json:"elapsed_minutes"`
	ViolationCount int              `json:"violation_count"`
	Violations     []Violation      `json:"violations"`
	WasFlagged     bool             `json:"was_flagged"`
	CompletedAt    time.Time        `json:"completed_at"`
}

// ExamResultSummary is one row of a user's exam history.
type ExamResultSummary struct {
	SessionID      uuid.UUID     `json:"session_id"`
	Course         string        `json:"course"`
	Subject        string        `json:"subject"`
	Area           string        `json:"area,omitempty"`
	Status         SessionStatus `json:"status"`
	Score          int           `json:"score"`
	CorrectCount   int           `json:"correct_count"`
	TotalQuestions int           `json:"total_questions"`
	ViolationCount int           `json:"violation_count"`
	WasFlagged     bool          `json:"was_flagged"`
	CompletedAt    time.Time     `json:"completed_at"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
}

// HistoryAggregates summarize the whole filtered history, not just one page.
type HistoryAggregates struct {
	Count          int     `json:"count"`
	AverageScore   float64 `json:"average_score"`
	MaxScore       int     `json:"max_score"`
	MinScore       int     `json:"min_score"`
	TotalQuestions int     `json:"total_questions"`
	TotalCorrect   int     `json:"total_correct"`
}

// HistoryQuery is the query string of the history listing.
type HistoryQuery struct {
	UserID  string `form:"user_id" binding:"omitempty"`
	Course  string `form:"course" binding:"omitempty,max=100"`
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// ExamHistory is one page of history with aggregates.
type ExamHistory struct {
	Results    []ExamResultSummary `json:"results"`
	Aggregates HistoryAggregates   `json:"aggregates"`
}

// StudentAverage is one student's mean score over graded results.
type StudentAverage struct {
	UserID       int
	AverageScore float64
}

// ExamStatistics is the cohort view over graded results.
type ExamStatistics struct {
	Course         string  `json:"course,omitempty"`
	TotalStudents  int     `json:"total_students"`
	AverageScore   float64 `json:"average_score"`
	PassRate       float64 `json:"pass_rate"`
	ExcellentCount int     `json:"excellent_count"`
}
