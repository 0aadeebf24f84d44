package websocket

import (
	"time"

	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestPayload is every client message; fields are read per action.
type RequestPayload struct {
	Action Action `json:"action"`

	// autosave
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`

	// violation
	Type      string     `json:"type,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// submit
	Answers map[string]string `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventViolation Event = "violation"
	EventGraded    Event = "graded"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event Event                   `json:"event"`
	Data  *model.SaveAnswerResult `json:"data"`
}

type ViolationResponse struct {
	Event Event                  `json:"event"`
	Data  *model.ViolationResult `json:"data"`
}

type GradedResponse struct {
	Event Event                     `json:"event"`
	Data  *model.SubmitExamResponse `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
