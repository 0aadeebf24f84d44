package service

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/service/servicetest"
)

var testNow = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

// clock is a settable time source shared by the services under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func seededRand(seed uint64) func() *rand.Rand {
	return func() *rand.Rand { return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

type fixture struct {
	store    *servicetest.Store
	events   *servicetest.Recorder
	clock    *clock
	sessions *ExamSessionService
	grading  *GradingService
	results  *ResultService
	student  int
}

const (
	testCourse  = "general"
	testSubject = "mathematics"
	areaCourse  = "medicine"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := servicetest.NewStore()
	events := &servicetest.Recorder{}
	clk := &clock{t: testNow}
	policy := DefaultExamPolicy()
	catalog := model.NewCourseCatalog([]string{areaCourse})
	log := zerolog.Nop()

	course := testCourse
	student := store.AddUser(model.User{Name: "Student", Role: model.RoleStudent, EnrolledCourse: &course})

	return &fixture{
		store:  store,
		events: events,
		clock:  clk,
		sessions: NewExamSessionService(store, store, store.Users(), events, catalog, policy, log).
			WithClock(clk.Now).
			WithRandSource(seededRand(7)),
		grading: NewGradingService(store, store, events, log).WithClock(clk.Now),
		results: NewResultService(store, store.Users(), policy),
		student: student,
	}
}

// makeQuestions builds n active questions; question i is answered by OptionLabels[i%4].
func makeQuestions(n int, course, subject, area string) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			QuestionText:  fmt.Sprintf("Question %d", i+1),
			Options:       []string{"one", "two", "three", "four"},
			CorrectOption: model.OptionLabels[i%len(model.OptionLabels)],
			Explanation:   fmt.Sprintf("Explanation %d", i+1),
			Difficulty:    model.DifficultyMedium,
			Category:      "algebra",
			Subject:       subject,
			Area:          area,
			Course:        course,
			IsActive:      true,
			CreatedAt:     testNow.Add(-time.Hour),
		}
	}
	return qs
}

func intPtr(n int) *int { return &n }
