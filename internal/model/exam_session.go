package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFlagged    SessionStatus = "flagged"
	SessionStatusAbandoned  SessionStatus = "abandoned"
)

// ParseSessionStatus rejects any string outside the closed status set.
func ParseSessionStatus(s string) (SessionStatus, error) {
	st := SessionStatus(s)
	switch st {
	case SessionStatusInProgress, SessionStatusCompleted, SessionStatusFlagged, SessionStatusAbandoned:
		return st, nil
	}
	return "", fmt.Errorf("unknown session status %q", s)
}

// Scan lets pgx decode the status column straight into the closed type.
func (s *SessionStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into SessionStatus", src)
	}
	st, err := ParseSessionStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Violation is one recorded integrity event.
type Violation struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ExamSession represents a user's exam attempt.
type ExamSession struct {
	ID             uuid.UUID         `json:"id"`
	UserID         int               `json:"user_id"`
	Course         string            `json:"course"`
	Subject        string            `json:"subject"`
	Area           string            `json:"area,omitempty"`
	QuestionIDs    []uuid.UUID       `json:"question_ids"`
	Answers        map[string]string `json:"answers"`
	Status         SessionStatus     `json:"status"`
	Violations     []Violation       `json:"violations"`
	ViolationCount int               `json:"violation_count"`
	WasFlagged     bool              `json:"was_flagged"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Score          *int              `json:"score,omitempty"`
}

// Graded reports whether the session already went through grading.
func (s *ExamSession) Graded() bool {
	return s.CompletedAt != nil
}

// SessionState classifies what an operation may do with a session.
type SessionState int

const (
	// StateOpen accepts violations and a submission.
	StateOpen SessionState = iota
	// StateGraded has been submitted; no further writes.
	StateGraded
	// StateClosed was abandoned and never graded.
	StateClosed
)

// State maps status plus completion onto the operations it permits. A flagged
// session that has not been graded is still open: flagging only pre-arms the
// terminal status.
func (s *ExamSession) State() SessionState {
	switch s.Status {
	case SessionStatusInProgress:
		return StateOpen
	case SessionStatusFlagged:
		if s.Graded() {
			return StateGraded
		}
		return StateOpen
	case SessionStatusCompleted:
		return StateGraded
	case SessionStatusAbandoned:
		return StateClosed
	}
	panic(fmt.Sprintf("unhandled session status %q", s.Status))
}

// FinalStatus is the terminal status grading records.
func FinalStatus(wasFlagged bool) SessionStatus {
	if wasFlagged {
		return SessionStatusFlagged
	}
	return SessionStatusCompleted
}

// StartExamRequest is the payload for starting an exam attempt.
type StartExamRequest struct {
	Course  string `json:"course" binding:"required,max=100"`
	Subject string `json:"subject" binding:"required,max=150"`
	Area    string `json:"area" binding:"omitempty,max=150"`
	Count   *int   `json:"count" binding:"omitempty,min=1,max=500"`
}

// StartExamResponse is returned to the client with the redacted question set.
type StartExamResponse struct {
	SessionID      uuid.UUID            `json:"session_id"`
	Questions      []QuestionForStudent `json:"questions"`
	TotalQuestions int                  `json:"total_questions"`
	Course         string               `json:"course"`
	Subject        string               `json:"subject"`
	Area           string               `json:"area,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
}

// LogViolationRequest is the payload for reporting an integrity violation.
type LogViolationRequest struct {
	Type      string     `json:"type" binding:"required,max=64,violation_type"`
	Timestamp *time.Time `json:"timestamp" binding:"omitempty"`
}

// ViolationResult reports the session's violation state after an append.
type ViolationResult struct {
	ViolationCount   int           `json:"violation_count"`
	ShouldAutoSubmit bool          `json:"should_auto_submit"`
	Status           SessionStatus `json:"status"`
}

// SaveAnswerRequest records one answer during the attempt.
type SaveAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer" binding:"required,max=8"`
}

// SaveAnswerResult acknowledges a saved answer.
type SaveAnswerResult struct {
	QuestionID    uuid.UUID   `json:"question_id"`
	Answer        OptionLabel `json:"answer"`
	AnsweredCount int         `json:"answered_count"`
}

// SubmitExamRequest is the payload for submitting answers.
type SubmitExamRequest struct {
	Answers map[string]string `json:"answers" binding:"max=1000,dive,max=8"`
}

// EligibilityQuery is the query string for the same-day eligibility check.
type EligibilityQuery struct {
	Course  string `form:"course" binding:"required,max=100"`
	Subject string `form:"subject" binding:"omitempty,max=150"`
	Area    string `form:"area" binding:"omitempty,max=150"`
}

// Eligibility is the decision of the same-day attempt gate.
type Eligibility struct {
	CanTake   bool       `json:"can_take"`
	Reason    string     `json:"reason"`
	Message   string     `json:"message"`
	BlockedAt *time.Time `json:"blocked_at,omitempty"`
}
