package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/repository"
)

// QuestionPool supplies candidate questions and the exact question set of a session.
type QuestionPool interface {
	ListActive(ctx context.Context, scope model.ExamScope) ([]model.Question, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// UserDirectory is the identity lookup.
type UserDirectory interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
}

// SessionStore is the durable exam session state.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	LatestAttempt(ctx context.Context, userID int, course string, topic model.TopicFilter, from, to time.Time) (*model.ExamSession, error)
	AppendViolation(ctx context.Context, id uuid.UUID, userID int, v model.Violation, threshold int) (*model.ExamSession, error)
	SaveAnswer(ctx context.Context, id uuid.UUID, userID int, questionID uuid.UUID, label model.OptionLabel) (*model.ExamSession, error)
	Finalize(ctx context.Context, p repository.FinalizeParams, record repository.RecordFunc) (*model.ExamSession, *model.ExamResult, error)
}

// ResultStore reads immutable exam results.
type ResultStore interface {
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error)
	ListByUser(ctx context.Context, userID int, course string, limit, offset int) ([]model.ExamResultSummary, int, error)
	AggregateByUser(ctx context.Context, userID int, course string) (model.HistoryAggregates, error)
	StudentAverages(ctx context.Context, course string) ([]model.StudentAverage, error)
}

// EventPublisher fans exam lifecycle events out to live monitors. Publishing
// is best-effort and never fails the exam operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.MonitorEvent)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.MonitorEvent) {}
