package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/repository"
)

// Eligibility reasons.
const (
	ReasonEligible     = "eligible"
	ReasonInProgress   = "attempt_in_progress"
	ReasonAlreadyTaken = "already_taken_today"
)

// EligibilityGate decides whether a user may start another attempt on a topic
// today. "Today" is the calendar day of the injected clock's location.
type EligibilityGate struct {
	sessions SessionStore
	now      func() time.Time
}

// NewEligibilityGate creates a new EligibilityGate.
func NewEligibilityGate(sessions SessionStore, now func() time.Time) *EligibilityGate {
	if now == nil {
		now = time.Now
	}
	return &EligibilityGate{sessions: sessions, now: now}
}

// Check looks for a non-abandoned attempt on the same course and topic within
// the current calendar day. It has no side effects.
func (g *EligibilityGate) Check(ctx context.Context, userID int, course string, topic model.TopicFilter) (*model.Eligibility, error) {
	if topic.Empty() {
		return nil, ErrTopicRequired
	}

	from, to := dayBounds(g.now())
	prior, err := g.sessions.LatestAttempt(ctx, userID, course, topic, from, to)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.Eligibility{
			CanTake: true,
			Reason:  ReasonEligible,
			Message: fmt.Sprintf("You can take the %s exam.", topic.Label()),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find today's attempt: %w", err)
	}

	blockedAt := prior.CreatedAt
	e := &model.Eligibility{
		CanTake:   false,
		Reason:    ReasonAlreadyTaken,
		Message:   fmt.Sprintf("You already took the %s exam today. Please try again tomorrow.", topic.Label()),
		BlockedAt: &blockedAt,
	}
	if prior.State() == model.StateOpen {
		e.Reason = ReasonInProgress
		e.Message = fmt.Sprintf("You have a %s exam in progress today.", topic.Label())
	}
	return e, nil
}

// dayBounds returns [midnight, next midnight) around t in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}
