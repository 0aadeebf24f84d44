// Package servicetest provides in-memory stand-ins for the exam engine's
// stores. They follow the same conditional-update rules as the PostgreSQL
// repositories so service and handler tests exercise real state transitions.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-exam-engine/internal/model"
	"github.com/stemsi/exstem-exam-engine/internal/repository"
)

// Store is a goroutine-safe in-memory exam store.
type Store struct {
	mu        sync.Mutex
	users     map[int]model.User
	questions []model.Question
	sessions  map[uuid.UUID]*model.ExamSession
	results   map[uuid.UUID]*model.ExamResult
	fail      error
	nextUser  int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    map[int]model.User{},
		sessions: map[uuid.UUID]*model.ExamSession{},
		results:  map[uuid.UUID]*model.ExamResult{},
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// AddUser stores u, assigning an ID when it has none, and returns the ID.
func (s *Store) AddUser(u model.User) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextUser++
		u.ID = s.nextUser
	}
	s.users[u.ID] = u
	return u.ID
}

// AddQuestions appends questions to the bank, assigning IDs where missing.
func (s *Store) AddQuestions(qs ...model.Question) []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Question, len(qs))
	for i, q := range qs {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		s.questions = append(s.questions, q)
		out[i] = q
	}
	return out
}

// PutSession stores a session as-is, for tests that need a specific state.
func (s *Store) PutSession(sess model.ExamSession) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	cp := copySession(&sess)
	s.sessions[sess.ID] = cp
	return sess.ID
}

// Session returns a copy of a stored session.
func (s *Store) Session(id uuid.UUID) (model.ExamSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.ExamSession{}, false
	}
	return *copySession(sess), true
}

// ResultCount reports how many results were recorded.
func (s *Store) ResultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// PutResult stores a result directly, bypassing grading.
func (s *Store) PutResult(res model.ExamResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.SessionID == uuid.Nil {
		res.SessionID = uuid.New()
	}
	s.results[res.SessionID] = &res
}

// ─── Identity ───────────────────────────────────────────────────────

// Users is the identity lookup view of a Store.
type Users struct {
	s *Store
}

// Users returns the store's identity lookup.
func (s *Store) Users() Users {
	return Users{s: s}
}

func (u Users) GetByID(_ context.Context, id int) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.fail != nil {
		return nil, u.s.fail
	}
	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

// ─── Question pool ──────────────────────────────────────────────────

func (s *Store) ListActive(_ context.Context, scope model.ExamScope) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []model.Question
	for _, q := range s.questions {
		if !q.IsActive || q.Course != scope.Course || q.Subject != scope.Subject {
			continue
		}
		if scope.Area != "" && q.Area != scope.Area {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Store) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []model.Question
	for _, q := range s.questions {
		if _, ok := want[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// ─── Sessions ───────────────────────────────────────────────────────

func (s *Store) Create(_ context.Context, sess *model.ExamSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	sess.ID = uuid.New()
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(sess), nil
}

func (s *Store) LatestAttempt(_ context.Context, userID int, course string, topic model.TopicFilter, from, to time.Time) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var latest *model.ExamSession
	for _, sess := range s.sessions {
		if sess.UserID != userID || sess.Course != course || sess.Status == model.SessionStatusAbandoned {
			continue
		}
		if sess.CreatedAt.Before(from) || !sess.CreatedAt.Before(to) || !topic.Matches(sess) {
			continue
		}
		if latest == nil || sess.CreatedAt.After(latest.CreatedAt) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return copySession(latest), nil
}

// open returns the session when it exists for userID and is still gradable.
func (s *Store) open(id uuid.UUID, userID int) (*model.ExamSession, bool) {
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || sess.CompletedAt != nil {
		return nil, false
	}
	if sess.Status != model.SessionStatusInProgress && sess.Status != model.SessionStatusFlagged {
		return nil, false
	}
	return sess, true
}

func (s *Store) AppendViolation(_ context.Context, id uuid.UUID, userID int, v model.Violation, threshold int) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	sess, ok := s.open(id, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	sess.Violations = append(sess.Violations, v)
	sess.ViolationCount++
	if sess.ViolationCount >= threshold {
		sess.WasFlagged = true
		sess.Status = model.SessionStatusFlagged
	}
	return copySession(sess), nil
}

func (s *Store) SaveAnswer(_ context.Context, id uuid.UUID, userID int, questionID uuid.UUID, label model.OptionLabel) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	sess, ok := s.open(id, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := false
	for _, qid := range sess.QuestionIDs {
		if qid == questionID {
			found = true
			break
		}
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	sess.Answers[questionID.String()] = string(label)
	return copySession(sess), nil
}

func (s *Store) Finalize(_ context.Context, p repository.FinalizeParams, record repository.RecordFunc) (*model.ExamSession, *model.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, nil, s.fail
	}
	sess, ok := s.sessions[p.SessionID]
	if !ok || sess.UserID != p.UserID || sess.State() == model.StateClosed {
		return nil, nil, repository.ErrNotFound
	}
	if _, ok := s.open(p.SessionID, p.UserID); !ok {
		return nil, nil, repository.ErrConflict
	}

	completedAt := p.CompletedAt
	score := p.Score
	sess.Answers = copyAnswers(p.Answers)
	sess.Score = &score
	sess.CompletedAt = &completedAt
	sess.Status = model.FinalStatus(sess.WasFlagged)

	final := copySession(sess)
	res := record(final)
	res.ID = uuid.New()
	res.CreatedAt = completedAt
	s.results[res.SessionID] = res
	return final, res, nil
}

// ─── Results ────────────────────────────────────────────────────────

func (s *Store) GetBySessionID(_ context.Context, sessionID uuid.UUID) (*model.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	res, ok := s.results[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (s *Store) userResults(userID int, course string) []*model.ExamResult {
	var out []*model.ExamResult
	for _, r := range s.results {
		if r.UserID == userID && (course == "" || r.Course == course) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out
}

func (s *Store) ListByUser(_ context.Context, userID int, course string, limit, offset int) ([]model.ExamResultSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, 0, s.fail
	}
	all := s.userResults(userID, course)
	var page []model.ExamResultSummary
	for i := offset; i < len(all) && i < offset+limit; i++ {
		r := all[i]
		page = append(page, model.ExamResultSummary{
			SessionID:      r.SessionID,
			Course:         r.Course,
			Subject:        r.Subject,
			Area:           r.Area,
			Status:         r.Status,
			Score:          r.Score,
			CorrectCount:   r.CorrectCount,
			TotalQuestions: r.TotalQuestions,
			ViolationCount: r.ViolationCount,
			WasFlagged:     r.WasFlagged,
			CompletedAt:    r.CompletedAt,
			ElapsedSeconds: r.ElapsedSeconds,
		})
	}
	return page, len(all), nil
}

func (s *Store) AggregateByUser(_ context.Context, userID int, course string) (model.HistoryAggregates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return model.HistoryAggregates{}, s.fail
	}
	var agg model.HistoryAggregates
	sum := 0
	for i, r := range s.userResults(userID, course) {
		agg.Count++
		sum += r.Score
		agg.TotalQuestions += r.TotalQuestions
		agg.TotalCorrect += r.CorrectCount
		if i == 0 || r.Score > agg.MaxScore {
			agg.MaxScore = r.Score
		}
		if i == 0 || r.Score < agg.MinScore {
			agg.MinScore = r.Score
		}
	}
	if agg.Count > 0 {
		agg.AverageScore = float64(sum) / float64(agg.Count)
	}
	return agg, nil
}

func (s *Store) StudentAverages(_ context.Context, course string) ([]model.StudentAverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	sums := map[int][2]int{}
	for _, r := range s.results {
		if course != "" && r.Course != course {
			continue
		}
		if r.Status != model.SessionStatusCompleted && r.Status != model.SessionStatusFlagged {
			continue
		}
		acc := sums[r.UserID]
		acc[0] += r.Score
		acc[1]++
		sums[r.UserID] = acc
	}
	out := make([]model.StudentAverage, 0, len(sums))
	for id, acc := range sums {
		out = append(out, model.StudentAverage{UserID: id, AverageScore: float64(acc[0]) / float64(acc[1])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ─── Monitor ────────────────────────────────────────────────────────

func (s *Store) LiveSessions(_ context.Context, course string) ([]model.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []model.LiveSession
	for _, sess := range s.sessions {
		if sess.CompletedAt != nil || sess.Status == model.SessionStatusAbandoned {
			continue
		}
		if course != "" && sess.Course != course {
			continue
		}
		out = append(out, model.LiveSession{
			SessionID:      sess.ID,
			UserID:         sess.UserID,
			Course:         sess.Course,
			Subject:        sess.Subject,
			Area:           sess.Area,
			Status:         sess.Status,
			ViolationCount: sess.ViolationCount,
			StartedAt:      sess.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *Store) GradedCounts(_ context.Context, course string, from, to time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, 0, s.fail
	}
	graded, flagged := 0, 0
	for _, r := range s.results {
		if course != "" && r.Course != course {
			continue
		}
		if r.CompletedAt.Before(from) || !r.CompletedAt.Before(to) {
			continue
		}
		graded++
		if r.WasFlagged {
			flagged++
		}
	}
	return graded, flagged, nil
}

func copySession(s *model.ExamSession) *model.ExamSession {
	cp := *s
	cp.QuestionIDs = append([]uuid.UUID(nil), s.QuestionIDs...)
	cp.Answers = copyAnswers(s.Answers)
	cp.Violations = append([]model.Violation{}, s.Violations...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	if s.Score != nil {
		v := *s.Score
		cp.Score = &v
	}
	return &cp
}

func copyAnswers(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
