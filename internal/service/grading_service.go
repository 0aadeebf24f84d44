package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/repository"
)

// GradingService grades submissions and records the immutable result.
type GradingService struct {
	questions QuestionPool
	sessions  SessionStore
	events    EventPublisher
	now       func() time.Time
	log       zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(questions QuestionPool, sessions SessionStore, events EventPublisher, log zerolog.Logger) *GradingService {
	if events == nil {
		events = NopPublisher{}
	}
	return &GradingService{
		questions: questions,
		sessions:  sessions,
		events:    events,
		now:       time.Now,
		log:       log.With().Str("component", "grading_service").Logger(),
	}
}

// WithClock replaces the clock used for completion timestamps.
func (s *GradingService) WithClock(now func() time.Time) *GradingService {
	s.now = now
	return s
}

// Submit grades an open session owned by userID exactly once. Concurrent
// submissions race on a conditional update; the loser gets ErrSessionGraded.
func (s *GradingService) Submit(ctx context.Context, sessionID uuid.UUID, userID int, rawAnswers map[string]string) (*model.SubmitExamResponse, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}

	switch sess.State() {
	case model.StateGraded:
		return nil, ErrSessionGraded
	case model.StateClosed:
		return nil, ErrSessionNotFound
	case model.StateOpen:
	}

	questions, err := s.questions.ListByIDs(ctx, sess.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load session questions: %w", err)
	}

	answers := NormalizeAnswers(sess.QuestionIDs, mergeAnswers(sess.Answers, rawAnswers))
	breakdown, correct := GradeAnswers(sess.QuestionIDs, questions, answers)
	total := len(sess.QuestionIDs)
	score := ScorePercent(correct, total)
	completedAt := s.now()

	final, result, err := s.sessions.Finalize(ctx, repository.FinalizeParams{
		SessionID:   sess.ID,
		UserID:      userID,
		Answers:     answers,
		Score:       score,
		CompletedAt: completedAt,
	}, func(fs *model.ExamSession) *model.ExamResult {
		elapsed := int(completedAt.Sub(fs.CreatedAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		return &model.ExamResult{
			SessionID:      fs.ID,
			UserID:         fs.UserID,
			Course:         fs.Course,
			Subject:        fs.Subject,
			Area:           fs.Area,
			Status:         fs.Status,
			Score:          score,
			CorrectCount:   correct,
			TotalQuestions: total,
			Breakdown:      breakdown,
			Violations:     fs.Violations,
			ViolationCount: fs.ViolationCount,
			WasFlagged:     fs.WasFlagged,
			StartedAt:      fs.CreatedAt,
			CompletedAt:    completedAt,
			ElapsedSeconds: elapsed,
		}
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrSessionNotFound
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrSessionGraded
	case err != nil:
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	s.log.Info().
		Str("session_id", final.ID.String()).
		Int("user_id", userID).
		Str("status", string(final.Status)).
		Int("score", score).
		Int("correct", correct).
		Int("total", total).
		Msg("Exam session graded")

	s.events.Publish(ctx, model.MonitorEvent{
		Type:           model.MonitorEventSubmitted,
		SessionID:      final.ID,
		UserID:         userID,
		Course:         final.Course,
		Subject:        final.Subject,
		Area:           final.Area,
		ViolationCount: final.ViolationCount,
		Status:         final.Status,
		Score:          &score,
		At:             completedAt,
	})

	violations := result.Violations
	if violations == nil {
		violations = []model.Violation{}
	}
	return &model.SubmitExamResponse{
		SessionID:      final.ID,
		Status:         result.Status,
		Score:          result.Score,
		CorrectCount:   result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		Breakdown:      result.Breakdown,
		ElapsedMinutes: ElapsedMinutes(result.ElapsedSeconds),
		ViolationCount: result.ViolationCount,
		Violations:     violations,
		WasFlagged:     result.WasFlagged,
		CompletedAt:    result.CompletedAt,
	}, nil
}

// mergeAnswers overlays the submitted answers on the autosaved ones.
func mergeAnswers(saved, submitted map[string]string) map[string]string {
	out := make(map[string]string, len(saved)+len(submitted))
	for k, v := range saved {
		out[k] = v
	}
	for k, v := range submitted {
		out[k] = v
	}
	return out
}
