package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/repository"
	"github.com/stemsi/exstem-exam-engine/internal/response"
)

// ResultService reads graded results, histories and cohort statistics.
type ResultService struct {
	results ResultStore
	users   UserDirectory
	policy  ExamPolicy
}

// NewResultService creates a new ResultService.
func NewResultService(results ResultStore, users UserDirectory, policy ExamPolicy) *ResultService {
	return &ResultService{results: results, users: users, policy: policy}
}

// GetResult returns the result of a session. Students only see their own.
func (s *ResultService) GetResult(ctx context.Context, caller Caller, sessionID uuid.UUID) (*model.ExamResult, error) {
	res, err := s.results.GetBySessionID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if !caller.Role.IsStaff() && res.UserID != caller.UserID {
		return nil, ErrResultNotFound
	}
	return res, nil
}

// History lists a user's results newest first with aggregates over the whole
// filtered set. targetUserID of 0 means the caller.
func (s *ResultService) History(ctx context.Context, caller Caller, targetUserID int, course string, page, perPage int) (*model.ExamHistory, *response.Pagination, error) {
	if targetUserID == 0 {
		targetUserID = caller.UserID
	}
	if targetUserID != caller.UserID && !caller.Role.IsStaff() {
		return nil, nil, ErrForbiddenScope
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	rows, total, err := s.results.ListByUser(ctx, targetUserID, course, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("list results: %w", err)
	}
	if rows == nil {
		rows = []model.ExamResultSummary{}
	}

	agg, err := s.results.AggregateByUser(ctx, targetUserID, course)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate results: %w", err)
	}
	agg.AverageScore = round1(agg.AverageScore)

	return &model.ExamHistory{Results: rows, Aggregates: agg}, response.NewPagination(page, perPage, total), nil
}

// Statistics computes the cohort view for a course. Administrators may pick
// any course (empty for all); everyone else is pinned to their enrolled course.
func (s *ResultService) Statistics(ctx context.Context, caller Caller, course string) (*model.ExamStatistics, error) {
	course, err := scopedCourse(ctx, s.users, caller, course)
	if err != nil {
		return nil, err
	}

	avgs, err := s.results.StudentAverages(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("student averages: %w", err)
	}

	stats := ComputeStatistics(avgs, s.policy.PassingScore, s.policy.ExcellentScore)
	stats.Course = course
	return &stats, nil
}

// ComputeStatistics derives cohort figures from per-student averages. Rates
// and means are rounded to one decimal.
func ComputeStatistics(avgs []model.StudentAverage, passing, excellent float64) model.ExamStatistics {
	if len(avgs) == 0 {
		return model.ExamStatistics{}
	}

	var (
		sum        float64
		passed     int
		excellents int
	)
	for _, a := range avgs {
		sum += a.AverageScore
		if a.AverageScore >= passing {
			passed++
		}
		if a.AverageScore >= excellent {
			excellents++
		}
	}

	n := float64(len(avgs))
	return model.ExamStatistics{
		TotalStudents:  len(avgs),
		AverageScore:   round1(sum / n),
		PassRate:       round1(float64(passed) / n * 100),
		ExcellentCount: excellents,
	}
}

// scopedCourse returns the course a caller may aggregate over: the requested
// one for administrators, the enrolled one for everyone else.
func scopedCourse(ctx context.Context, users UserDirectory, caller Caller, requested string) (string, error) {
	if caller.Role == model.RoleAdmin {
		return requested, nil
	}
	user, err := users.GetByID(ctx, caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if user.EnrolledCourse == nil {
		return "", ErrForbiddenScope
	}
	return *user.EnrolledCourse, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
