package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// ExamResultRepository reads the immutable exam result records.
type ExamResultRepository struct {
	pool *pgxpool.Pool
}

// NewExamResultRepository creates a new ExamResultRepository.
func NewExamResultRepository(pool *pgxpool.Pool) *ExamResultRepository {
	return &ExamResultRepository{pool: pool}
}

func insertResult(ctx context.Context, tx pgx.Tx, res *model.ExamResult) error {
	return tx.QueryRow(ctx,
		`INSERT INTO exam_results (
			session_id, user_id, course, subject, area, status, score, correct_count, total_questions,
			breakdown, violations, violation_count, was_flagged, started_at, completed_at, elapsed_seconds
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, created_at`,
		res.SessionID, res.UserID, res.Course, res.Subject, nullable(res.Area), res.Status,
		res.Score, res.CorrectCount, res.TotalQuestions, res.Breakdown, res.Violations,
		res.ViolationCount, res.WasFlagged, res.StartedAt, res.CompletedAt, res.ElapsedSeconds,
	).Scan(&res.ID, &res.CreatedAt)
}

// GetBySessionID retrieves the result of a graded session.
func (r *ExamResultRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error) {
	var (
		res  model.ExamResult
		area *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, user_id, course, subject, area, status, score, correct_count, total_questions,
		        breakdown, violations, violation_count, was_flagged, started_at, completed_at, elapsed_seconds, created_at
		 FROM exam_results WHERE session_id = $1`, sessionID,
	).Scan(
		&res.ID, &res.SessionID, &res.UserID, &res.Course, &res.Subject, &area, &res.Status,
		&res.Score, &res.CorrectCount, &res.TotalQuestions, &res.Breakdown, &res.Violations,
		&res.ViolationCount, &res.WasFlagged, &res.StartedAt, &res.CompletedAt, &res.ElapsedSeconds, &res.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	res.Area = deref(area)
	return &res, nil
}

// ListByUser retrieves one page of a user's results, newest completion first.
// An empty course means all courses.
func (r *ExamResultRepository) ListByUser(ctx context.Context, userID int, course string, limit, offset int) ([]model.ExamResultSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE user_id = $1 AND ($2::text = '' OR course = $2)`,
		userID, course,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT session_id, course, subject, area, status, score, correct_count, total_questions,
		        violation_count, was_flagged, completed_at, elapsed_seconds
		 FROM exam_results
		 WHERE user_id = $1 AND ($2::text = '' OR course = $2)
		 ORDER BY completed_at DESC, id
		 LIMIT $3 OFFSET $4`,
		userID, course, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := []model.ExamResultSummary{}
	for rows.Next() {
		var (
			s    model.ExamResultSummary
			area *string
		)
		if err := rows.Scan(
			&s.SessionID, &s.Course, &s.Subject, &area, &s.Status, &s.Score, &s.CorrectCount, &s.TotalQuestions,
			&s.ViolationCount, &s.WasFlagged, &s.CompletedAt, &s.ElapsedSeconds,
		); err != nil {
			return nil, 0, err
		}
		s.Area = deref(area)
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

// AggregateByUser computes aggregates over every result matching the filter.
// An empty set yields zero values.
func (r *ExamResultRepository) AggregateByUser(ctx context.Context, userID int, course string) (model.HistoryAggregates, error) {
	var agg model.HistoryAggregates
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(score), 0)::float8,
		        COALESCE(MAX(score), 0),
		        COALESCE(MIN(score), 0),
		        COALESCE(SUM(total_questions), 0),
		        COALESCE(SUM(correct_count), 0)
		 FROM exam_results
		 WHERE user_id = $1 AND ($2::text = '' OR course = $2)`,
		userID, course,
	).Scan(&agg.Count, &agg.AverageScore, &agg.MaxScore, &agg.MinScore, &agg.TotalQuestions, &agg.TotalCorrect)
	return agg, err
}

// StudentAverages returns each student's mean score over completed and flagged
// results. An empty course means all courses.
func (r *ExamResultRepository) StudentAverages(ctx context.Context, course string) ([]model.StudentAverage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, AVG(score)::float8
		 FROM exam_results
		 WHERE status IN ($1, $2) AND ($3::text = '' OR course = $3)
		 GROUP BY user_id
		 ORDER BY user_id`,
		model.SessionStatusCompleted, model.SessionStatusFlagged, course,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	averages := []model.StudentAverage{}
	for rows.Next() {
		var a model.StudentAverage
		if err := rows.Scan(&a.UserID, &a.AverageScore); err != nil {
			return nil, err
		}
		averages = append(averages, a)
	}
	return averages, rows.Err()
}
