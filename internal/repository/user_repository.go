package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// UserRepository looks up identity records owned by the platform's user service.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, role, enrolled_course FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Role, &u.EnrolledCourse)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}
