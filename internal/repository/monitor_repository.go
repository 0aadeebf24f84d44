package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// MonitorRepository provides data access for the live exam monitor.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// LiveSessions returns every ungraded, non-abandoned session, optionally
// restricted to one course, oldest first.
func (r *MonitorRepository) LiveSessions(ctx context.Context, course string) ([]model.LiveSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, course, subject, COALESCE(area, ''), status, violation_count, created_at
		 FROM exam_sessions
		 WHERE completed_at IS NULL AND status IN ($1, $2)
		   AND ($3::text = '' OR course = $3)
		 ORDER BY created_at`,
		model.SessionStatusInProgress, model.SessionStatusFlagged, course,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LiveSession, error) {
		var s model.LiveSession
		err := row.Scan(&s.SessionID, &s.UserID, &s.Course, &s.Subject, &s.Area, &s.Status, &s.ViolationCount, &s.StartedAt)
		return s, err
	})
}

// GradedCounts returns how many results were recorded in [from, to), and how
// many of those were flagged.
func (r *MonitorRepository) GradedCounts(ctx context.Context, course string, from, to time.Time) (graded, flagged int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE was_flagged)
		 FROM exam_results
		 WHERE completed_at >= $1 AND completed_at < $2
		   AND ($3::text = '' OR course = $3)`,
		from, to, course,
	).Scan(&graded, &flagged)
	return graded, flagged, err
}
