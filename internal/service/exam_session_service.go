package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/repository"
)

// ExamPolicy holds the tunable exam rules.
type ExamPolicy struct {
	DefaultQuestionCount int
	ViolationThreshold   int
	PassingScore         float64
	ExcellentScore       float64
}

// DefaultExamPolicy returns the stock rules: 50 questions, flag at 3 violations,
// pass at 75, excellent at 90.
func DefaultExamPolicy() ExamPolicy {
	return ExamPolicy{
		DefaultQuestionCount: 50,
		ViolationThreshold:   3,
		PassingScore:         75,
		ExcellentScore:       90,
	}
}

// ExamSessionService starts attempts and tracks integrity violations.
type ExamSessionService struct {
	questions QuestionPool
	sessions  SessionStore
	users     UserDirectory
	gate      *EligibilityGate
	events    EventPublisher
	catalog   model.CourseCatalog
	policy    ExamPolicy
	now       func() time.Time
	newRand   func() *rand.Rand
	log       zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	questions QuestionPool,
	sessions SessionStore,
	users UserDirectory,
	events EventPublisher,
	catalog model.CourseCatalog,
	policy ExamPolicy,
	log zerolog.Logger,
) *ExamSessionService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ExamSessionService{
		questions: questions,
		sessions:  sessions,
		users:     users,
		gate:      NewEligibilityGate(sessions, time.Now),
		events:    events,
		catalog:   catalog,
		policy:    policy,
		now:       time.Now,
		newRand:   func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		log:       log.With().Str("component", "exam_session_service").Logger(),
	}
}

// WithClock replaces the clock used for timestamps and the same-day window.
func (s *ExamSessionService) WithClock(now func() time.Time) *ExamSessionService {
	s.now = now
	s.gate = NewEligibilityGate(s.sessions, now)
	return s
}

// WithRandSource replaces the per-operation shuffle source factory.
func (s *ExamSessionService) WithRandSource(newRand func() *rand.Rand) *ExamSessionService {
	s.newRand = newRand
	return s
}

// StartExamInput identifies the caller and the requested exam.
type StartExamInput struct {
	UserID  int
	Course  string
	Subject string
	Area    string
	Count   *int
}

// CheckEligibility reports whether the user may start an attempt on the topic
// today. The topic is the area when one is given, else the subject; courses
// that do not key exams by area ignore it whenever a subject is present.
func (s *ExamSessionService) CheckEligibility(ctx context.Context, userID int, course, subject, area string) (*model.Eligibility, error) {
	topic := model.TopicFilter{Subject: subject, Area: area}
	if _, topicOnly := s.catalog.Lookup(course).(model.TopicOnlyCourse); topicOnly && subject != "" {
		topic.Area = ""
	}
	return s.gate.Check(ctx, userID, course, topic)
}

// StartExam builds a new attempt: it draws a shuffled, redacted question set
// from the active pool and persists an in-progress session.
func (s *ExamSessionService) StartExam(ctx context.Context, in StartExamInput) (*model.StartExamResponse, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.EnrolledCourse != nil && *user.EnrolledCourse != in.Course {
		return nil, ErrCourseMismatch
	}

	scope, err := s.catalog.Lookup(in.Course).Scope(in.Subject, in.Area)
	if errors.Is(err, model.ErrAreaRequired) {
		return nil, ErrAreaRequired
	}
	if err != nil {
		return nil, err
	}

	eligibility, err := s.gate.Check(ctx, user.ID, scope.Course, model.TopicFilter{Subject: scope.Subject, Area: scope.Area})
	if err != nil {
		return nil, err
	}
	if !eligibility.CanTake {
		return nil, ErrAlreadyTakenToday
	}

	pool, err := s.questions.ListActive(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list question pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}

	count := s.policy.DefaultQuestionCount
	if in.Count != nil {
		count = *in.Count
	}
	selected := drawQuestions(pool, count, s.newRand())

	ids := make([]uuid.UUID, len(selected))
	redacted := make([]model.QuestionForStudent, len(selected))
	for i := range selected {
		ids[i] = selected[i].ID
		redacted[i] = selected[i].Redact()
	}

	session := &model.ExamSession{
		UserID:      user.ID,
		Course:      scope.Course,
		Subject:     scope.Subject,
		Area:        scope.Area,
		QuestionIDs: ids,
		Answers:     map[string]string{},
		Status:      model.SessionStatusInProgress,
		Violations:  []model.Violation{},
		CreatedAt:   s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("user_id", user.ID).
		Str("course", scope.Course).
		Str("subject", scope.Subject).
		Int("questions", len(ids)).
		Msg("Exam session started")

	s.events.Publish(ctx, model.MonitorEvent{
		Type:      model.MonitorEventStarted,
		SessionID: session.ID,
		UserID:    user.ID,
		Course:    scope.Course,
		Subject:   scope.Subject,
		Area:      scope.Area,
		Status:    session.Status,
		At:        session.CreatedAt,
	})

	return &model.StartExamResponse{
		SessionID:      session.ID,
		Questions:      redacted,
		TotalQuestions: len(redacted),
		Course:         scope.Course,
		Subject:        scope.Subject,
		Area:           scope.Area,
		StartedAt:      session.CreatedAt,
	}, nil
}

// drawQuestions shuffles a copy of the pool with rng and keeps the first
// min(count, len(pool)) questions.
func drawQuestions(pool []model.Question, count int, rng *rand.Rand) []model.Question {
	if count <= 0 || count > len(pool) {
		count = len(pool)
	}
	shuffled := make([]model.Question, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}

// LogViolation appends an integrity violation to an open session owned by
// userID. Reaching the threshold pre-flags the session; grading is left to the
// caller, signalled through ShouldAutoSubmit.
func (s *ExamSessionService) LogViolation(ctx context.Context, sessionID uuid.UUID, userID int, req model.LogViolationRequest) (*model.ViolationResult, error) {
	at := s.now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	threshold := s.policy.ViolationThreshold
	sess, err := s.sessions.AppendViolation(ctx, sessionID, userID, model.Violation{Type: req.Type, Timestamp: at.UTC()}, threshold)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("append violation: %w", err)
	}

	result := &model.ViolationResult{
		ViolationCount:   sess.ViolationCount,
		ShouldAutoSubmit: sess.ViolationCount >= threshold,
		Status:           sess.Status,
	}

	s.log.Warn().
		Str("session_id", sessionID.String()).
		Int("user_id", userID).
		Str("type", req.Type).
		Int("count", sess.ViolationCount).
		Msg("Integrity violation recorded")

	ev := model.MonitorEvent{
		Type:           model.MonitorEventViolation,
		SessionID:      sess.ID,
		UserID:         userID,
		Course:         sess.Course,
		Subject:        sess.Subject,
		Area:           sess.Area,
		ViolationCount: sess.ViolationCount,
		Status:         sess.Status,
		At:             at,
	}
	s.events.Publish(ctx, ev)
	if sess.ViolationCount == threshold {
		ev.Type = model.MonitorEventFlagged
		s.events.Publish(ctx, ev)
	}

	return result, nil
}

// SaveAnswer stores one in-progress answer so a reconnecting client can
// resume. The label must be one of the option labels.
func (s *ExamSessionService) SaveAnswer(ctx context.Context, sessionID uuid.UUID, userID int, req model.SaveAnswerRequest) (*model.SaveAnswerResult, error) {
	label, ok := model.ParseOptionLabel(req.Answer)
	if !ok {
		return nil, ErrInvalidAnswer
	}

	sess, err := s.sessions.SaveAnswer(ctx, sessionID, userID, req.QuestionID, label)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}

	return &model.SaveAnswerResult{
		QuestionID:    req.QuestionID,
		Answer:        label,
		AnsweredCount: len(sess.Answers),
	}, nil
}
