package model

import (
	"time"

	"github.com/google/uuid"
)

// MonitorEventType enumerates live-monitor notifications.
type MonitorEventType string

const (
	MonitorEventStarted   MonitorEventType = "started"
	MonitorEventViolation MonitorEventType = "violation"
	MonitorEventFlagged   MonitorEventType = "flagged"
	MonitorEventSubmitted MonitorEventType = "submitted"
)

// MonitorEvent is published to staff watching a course's exams.
type MonitorEvent struct {
	Type           MonitorEventType `json:"type"`
	SessionID      uuid.UUID        `json:"session_id"`
	UserID         int              `json:"user_id"`
	Course         string           `json:"course"`
	Subject        string           `json:"subject"`
	Area           string           `json:"area,omitempty"`
	ViolationCount int              `json:"violation_count"`
	Status         SessionStatus    `json:"status"`
	Score          *int             `json:"score,omitempty"`
	At             time.Time        `json:"at"`
}

// LiveSession is an ungraded attempt as shown on the monitor.
type LiveSession struct {
	SessionID      uuid.UUID     `json:"session_id"`
	UserID         int           `json:"user_id"`
	Course         string        `json:"course"`
	Subject        string        `json:"subject"`
	Area           string        `json:"area,omitempty"`
	Status         SessionStatus `json:"status"`
	ViolationCount int           `json:"violation_count"`
	StartedAt      time.Time     `json:"started_at"`
}

// MonitorSnapshot is the state a monitor receives when it connects.
type MonitorSnapshot struct {
	Course       string        `json:"course,omitempty"`
	Live         []LiveSession `json:"live"`
	GradedToday  int           `json:"graded_today"`
	FlaggedToday int           `json:"flagged_today"`
	GeneratedAt  time.Time     `json:"generated_at"`
}
