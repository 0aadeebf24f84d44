package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

const questionColumns = `id, question_text, options, correct_option, explanation, difficulty, category,
	subject, area, course, is_active, created_by, created_at, updated_at`

// QuestionRepository is a read-only view over the question bank.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListActive retrieves every active question of a course/subject, narrowed to
// the area when the scope carries one.
func (r *QuestionRepository) ListActive(ctx context.Context, scope model.ExamScope) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE is_active AND course = $1 AND subject = $2
		   AND ($3::text = '' OR area = $3)
		 ORDER BY created_at, id`,
		scope.Course, scope.Subject, scope.Area,
	)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListByIDs retrieves the given questions regardless of their active flag, so
// a session can always be graded against the exact set it was issued.
func (r *QuestionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1::uuid[])`, ids,
	)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var (
			q           model.Question
			explanation *string
			area        *string
		)
		if err := rows.Scan(
			&q.ID, &q.QuestionText, &q.Options, &q.CorrectOption, &explanation, &q.Difficulty, &q.Category,
			&q.Subject, &area, &q.Course, &q.IsActive, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		q.Explanation = deref(explanation)
		q.Area = deref(area)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
