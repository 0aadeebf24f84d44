package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

func TestComputeStatistics(t *testing.T) {
	avgs := []model.StudentAverage{
		{UserID: 1, AverageScore: 96},
		{UserID: 2, AverageScore: 80},
		{UserID: 3, AverageScore: 70},
		{UserID: 4, AverageScore: 60},
	}

	got := ComputeStatistics(avgs, 75, 90)
	want := model.ExamStatistics{TotalStudents: 4, AverageScore: 76.5, PassRate: 50.0, ExcellentCount: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if empty := ComputeStatistics(nil, 75, 90); empty != (model.ExamStatistics{}) {
		t.Fatalf("empty cohort = %+v, want zeros", empty)
	}

	third := ComputeStatistics([]model.StudentAverage{{AverageScore: 75}, {AverageScore: 74.9}, {AverageScore: 10}}, 75, 90)
	if third.PassRate != 33.3 || third.AverageScore != 53.3 {
		t.Fatalf("got %+v, want pass rate 33.3 and mean 53.3", third)
	}
}

func putResults(f *fixture, userID int, course string, scores ...int) {
	for i, score := range scores {
		status := model.SessionStatusCompleted
		f.store.PutResult(model.ExamResult{
			UserID:         userID,
			Course:         course,
			Subject:        testSubject,
			Status:         status,
			Score:          score,
			CorrectCount:   score / 10,
			TotalQuestions: 10,
			CompletedAt:    testNow.Add(time.Duration(i) * time.Hour),
		})
	}
}

func TestHistory_PaginatesWithWholeSetAggregates(t *testing.T) {
	f := newFixture(t)
	putResults(f, f.student, testCourse, 40, 90, 70, 60, 80)
	putResults(f, f.student+50, testCourse, 100)

	caller := Caller{UserID: f.student, Role: model.RoleStudent}
	hist, page, err := f.results.History(context.Background(), caller, 0, "", 3, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if len(hist.Results) != 1 || hist.Results[0].Score != 40 {
		t.Fatalf("page 3 = %+v, want the oldest result only", hist.Results)
	}
	if page.TotalItems != 5 || page.TotalPages != 3 || page.Page != 3 || page.PerPage != 2 {
		t.Fatalf("pagination = %+v", page)
	}
	agg := hist.Aggregates
	if agg.Count != 5 || agg.AverageScore != 68 || agg.MaxScore != 90 || agg.MinScore != 40 {
		t.Fatalf("aggregates = %+v", agg)
	}
	if agg.TotalQuestions != 50 || agg.TotalCorrect != 34 {
		t.Fatalf("totals = %d/%d, want 34/50", agg.TotalCorrect, agg.TotalQuestions)
	}
}

func TestHistory_Defaults(t *testing.T) {
	f := newFixture(t)
	caller := Caller{UserID: f.student, Role: model.RoleStudent}

	hist, page, err := f.results.History(context.Background(), caller, 0, "", 0, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist.Results == nil || len(hist.Results) != 0 {
		t.Fatalf("results = %#v, want empty list", hist.Results)
	}
	if hist.Aggregates != (model.HistoryAggregates{}) {
		t.Fatalf("aggregates = %+v, want zeros", hist.Aggregates)
	}
	if page.Page != 1 || page.PerPage != 10 || page.TotalPages != 0 {
		t.Fatalf("pagination = %+v", page)
	}

	_, page, err = f.results.History(context.Background(), caller, 0, "", 1, 500)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if page.PerPage != 100 {
		t.Fatalf("per page = %d, want clamp to 100", page.PerPage)
	}
}

func TestHistory_Scope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := f.store.AddUser(model.User{Name: "Other", Role: model.RoleStudent})
	putResults(f, other, testCourse, 55)

	student := Caller{UserID: f.student, Role: model.RoleStudent}
	if _, _, err := f.results.History(ctx, student, other, "", 1, 10); !errors.Is(err, ErrForbiddenScope) {
		t.Fatalf("student reading another history: err = %v, want ErrForbiddenScope", err)
	}

	instructor := Caller{UserID: 900, Role: model.RoleInstructor}
	hist, _, err := f.results.History(ctx, instructor, other, "", 1, 10)
	if err != nil {
		t.Fatalf("instructor History: %v", err)
	}
	if len(hist.Results) != 1 || hist.Results[0].Score != 55 {
		t.Fatalf("instructor sees %+v", hist.Results)
	}

	filtered, _, err := f.results.History(ctx, instructor, other, "engineering", 1, 10)
	if err != nil {
		t.Fatalf("filtered History: %v", err)
	}
	if len(filtered.Results) != 0 || filtered.Aggregates.Count != 0 {
		t.Fatalf("course filter ignored: %+v", filtered)
	}
}

func TestGetResult_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessionID := uuid.New()
	f.store.PutResult(model.ExamResult{SessionID: sessionID, UserID: f.student, Course: testCourse, Score: 70})

	tests := []struct {
		name    string
		caller  Caller
		id      uuid.UUID
		wantErr error
	}{
		{"owner", Caller{UserID: f.student, Role: model.RoleStudent}, sessionID, nil},
		{"other student", Caller{UserID: f.student + 1, Role: model.RoleStudent}, sessionID, ErrResultNotFound},
		{"instructor", Caller{UserID: 77, Role: model.RoleInstructor}, sessionID, nil},
		{"admin", Caller{UserID: 78, Role: model.RoleAdmin}, sessionID, nil},
		{"missing", Caller{UserID: f.student, Role: model.RoleStudent}, uuid.New(), ErrResultNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.results.GetResult(ctx, tt.caller, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && res.Score != 70 {
				t.Fatalf("score = %d, want 70", res.Score)
			}
		})
	}
}

func TestStatistics_Scope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	general := testCourse
	s2 := f.store.AddUser(model.User{Name: "S2", Role: model.RoleStudent, EnrolledCourse: &general})
	putResults(f, f.student, testCourse, 100, 80)
	putResults(f, s2, testCourse, 60)
	putResults(f, 500, "engineering", 95)

	instructor := f.store.AddUser(model.User{Name: "Instructor", Role: model.RoleInstructor, EnrolledCourse: &general})
	unscoped := f.store.AddUser(model.User{Name: "Floating", Role: model.RoleInstructor})
	admin := f.store.AddUser(model.User{Name: "Root", Role: model.RoleAdmin})

	stats, err := f.results.Statistics(ctx, Caller{UserID: instructor, Role: model.RoleInstructor}, "engineering")
	if err != nil {
		t.Fatalf("instructor Statistics: %v", err)
	}
	if stats.Course != testCourse || stats.TotalStudents != 2 || stats.AverageScore != 75 || stats.PassRate != 50 || stats.ExcellentCount != 1 {
		t.Fatalf("instructor pinned stats = %+v", stats)
	}

	stats, err = f.results.Statistics(ctx, Caller{UserID: admin, Role: model.RoleAdmin}, "")
	if err != nil {
		t.Fatalf("admin Statistics: %v", err)
	}
	if stats.TotalStudents != 3 || stats.Course != "" {
		t.Fatalf("admin all-course stats = %+v", stats)
	}

	stats, err = f.results.Statistics(ctx, Caller{UserID: admin, Role: model.RoleAdmin}, "engineering")
	if err != nil {
		t.Fatalf("admin Statistics: %v", err)
	}
	if stats.TotalStudents != 1 || stats.ExcellentCount != 1 {
		t.Fatalf("admin engineering stats = %+v", stats)
	}

	if _, err := f.results.Statistics(ctx, Caller{UserID: unscoped, Role: model.RoleInstructor}, ""); !errors.Is(err, ErrForbiddenScope) {
		t.Fatalf("instructor without course: err = %v, want ErrForbiddenScope", err)
	}
	if _, err := f.results.Statistics(ctx, Caller{UserID: 4040, Role: model.RoleInstructor}, ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown instructor: err = %v, want ErrUserNotFound", err)
	}
}
