package service

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// MonitorSource is the read side of the live monitor.
type MonitorSource interface {
	LiveSessions(ctx context.Context, course string) ([]model.LiveSession, error)
	GradedCounts(ctx context.Context, course string, from, to time.Time) (graded, flagged int, err error)
}

// MonitorService builds the initial view for live exam monitors.
type MonitorService struct {
	source MonitorSource
	users  UserDirectory
	now    func() time.Time
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(source MonitorSource, users UserDirectory) *MonitorService {
	return &MonitorService{source: source, users: users, now: time.Now}
}

// ResolveCourse pins non-administrators to their enrolled course.
func (s *MonitorService) ResolveCourse(ctx context.Context, caller Caller, course string) (string, error) {
	return scopedCourse(ctx, s.users, caller, course)
}

// WithClock replaces the clock that defines "today".
func (s *MonitorService) WithClock(now func() time.Time) *MonitorService {
	s.now = now
	return s
}

// Snapshot fetches the live sessions and today's graded counts in parallel.
// The live list is required; the counts are best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, course string) (*model.MonitorSnapshot, error) {
	now := s.now()
	from, to := dayBounds(now)

	var (
		live              []model.LiveSession
		graded, flagged   int
		liveErr, countErr error
		wg                sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		live, liveErr = s.source.LiveSessions(ctx, course)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		graded, flagged, countErr = s.source.GradedCounts(ctx, course, from, to)
	}()

	wg.Wait()

	if liveErr != nil {
		return nil, liveErr
	}
	if live == nil {
		live = []model.LiveSession{}
	}

	snap := &model.MonitorSnapshot{Course: course, Live: live, GeneratedAt: now}
	if countErr == nil {
		snap.GradedToday = graded
		snap.FlaggedToday = flagged
	}
	return snap, nil
}
