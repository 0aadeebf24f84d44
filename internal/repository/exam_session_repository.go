package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

const sessionColumns = `id, user_id, course, subject, area, question_ids, answers, status,
	violations, violation_count, was_flagged, created_at, completed_at, score`

// FinalizeParams carries the graded outcome of a submission.
type FinalizeParams struct {
	SessionID   uuid.UUID
	UserID      int
	Answers     map[string]string
	Score       int
	CompletedAt time.Time
}

// RecordFunc builds the result record from the session as it stands after the
// conditional update.
type RecordFunc func(s *model.ExamSession) *model.ExamResult

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a new in-progress session with no answers and no violations.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (user_id, course, subject, area, question_ids, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		s.UserID, s.Course, s.Subject, nullable(s.Area), s.QuestionIDs, model.SessionStatusInProgress, s.CreatedAt,
	).Scan(&s.ID)
}

// GetByID retrieves a session by ID.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id,
	))
}

// LatestAttempt returns the newest non-abandoned attempt of a user on a course
// and topic created within [from, to).
func (r *ExamSessionRepository) LatestAttempt(ctx context.Context, userID int, course string, topic model.TopicFilter, from, to time.Time) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE user_id = $1 AND course = $2
		   AND status <> $3
		   AND created_at >= $4 AND created_at < $5
		   AND (($6::text <> '' AND area = $6) OR ($6::text = '' AND subject = $7))
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, course, model.SessionStatusAbandoned, from, to, topic.Area, topic.Subject,
	))
}

// AppendViolation appends one violation and increments the counter in a single
// statement. Reaching the threshold pre-sets the status to flagged. Only
// ungraded sessions owned by userID are touched; anything else is ErrNotFound.
func (r *ExamSessionRepository) AppendViolation(ctx context.Context, id uuid.UUID, userID int, v model.Violation, threshold int) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET violations      = violations || jsonb_build_array(jsonb_build_object('type', $3::text, 'timestamp', $4::timestamptz)),
		     violation_count = violation_count + 1,
		     was_flagged     = was_flagged OR violation_count + 1 >= $5,
		     status          = CASE WHEN violation_count + 1 >= $5 THEN $6 ELSE status END
		 WHERE id = $1 AND user_id = $2
		   AND completed_at IS NULL
		   AND status IN ($7, $6)
		 RETURNING `+sessionColumns,
		id, userID, v.Type, v.Timestamp, threshold,
		model.SessionStatusFlagged, model.SessionStatusInProgress,
	))
}

// SaveAnswer records one answer on an ungraded session owned by userID. The
// question must belong to the session; anything else is ErrNotFound.
func (r *ExamSessionRepository) SaveAnswer(ctx context.Context, id uuid.UUID, userID int, questionID uuid.UUID, label model.OptionLabel) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET answers = answers || jsonb_build_object($3::text, $4::text)
		 WHERE id = $1 AND user_id = $2
		   AND completed_at IS NULL
		   AND status IN ($5, $6)
		   AND $3::uuid = ANY(question_ids)
		 RETURNING `+sessionColumns,
		id, userID, questionID.String(), string(label),
		model.SessionStatusInProgress, model.SessionStatusFlagged,
	))
}

// Finalize grades a session exactly once. The update is conditional on the
// session still being ungraded; the final status is decided from was_flagged
// inside the same statement so a concurrent violation is never lost. The
// result row is inserted in the same transaction.
//
// Returns ErrNotFound when the session does not exist for userID or was
// abandoned, and ErrConflict when it was already graded.
func (r *ExamSessionRepository) Finalize(ctx context.Context, p FinalizeParams, record RecordFunc) (*model.ExamSession, *model.ExamResult, error) {
	var (
		session *model.ExamSession
		result  *model.ExamResult
	)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		s, err := scanSession(tx.QueryRow(ctx,
			`UPDATE exam_sessions
			 SET answers      = $3,
			     score        = $4,
			     completed_at = $5,
			     status       = CASE WHEN was_flagged THEN $6 ELSE $7 END
			 WHERE id = $1 AND user_id = $2
			   AND completed_at IS NULL
			   AND status IN ($8, $6)
			 RETURNING `+sessionColumns,
			p.SessionID, p.UserID, p.Answers, p.Score, p.CompletedAt,
			model.FinalStatus(true), model.FinalStatus(false), model.SessionStatusInProgress,
		))
		if errors.Is(err, ErrNotFound) {
			return r.classifyMiss(ctx, tx, p.SessionID, p.UserID)
		}
		if err != nil {
			return fmt.Errorf("finalize session: %w", err)
		}

		res := record(s)
		if err := insertResult(ctx, tx, res); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}

		session, result = s, res
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return session, result, nil
}

// classifyMiss explains why the claim matched nothing. Abandoned sessions read
// as missing, the same answer a caller gets before the claim is attempted.
func (r *ExamSessionRepository) classifyMiss(ctx context.Context, tx pgx.Tx, id uuid.UUID, userID int) error {
	var s model.ExamSession
	err := tx.QueryRow(ctx,
		`SELECT status, completed_at FROM exam_sessions WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&s.Status, &s.CompletedAt)
	if err != nil {
		return notFound(err)
	}
	if s.State() == model.StateClosed {
		return ErrNotFound
	}
	return ErrConflict
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	var (
		s    model.ExamSession
		area *string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Course, &s.Subject, &area, &s.QuestionIDs, &s.Answers, &s.Status,
		&s.Violations, &s.ViolationCount, &s.WasFlagged, &s.CreatedAt, &s.CompletedAt, &s.Score,
	)
	if err != nil {
		return nil, notFound(err)
	}
	s.Area = deref(area)
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	if s.Violations == nil {
		s.Violations = []model.Violation{}
	}
	return &s, nil
}
