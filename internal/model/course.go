package model

import "errors"

// ErrAreaRequired is returned when an area-scoped course is requested without an area.
var ErrAreaRequired = errors.New("area is required for this course")

// Course is a closed set of course shapes. A course either keys its exams by
// subject alone or by subject and area.
type Course interface {
	Code() string
	// Scope resolves the exam scope for a request, dropping or requiring
	// the area according to the course shape.
	Scope(subject, area string) (ExamScope, error)
	course()
}

// TopicOnlyCourse keys exams by subject only.
type TopicOnlyCourse struct {
	code string
}

// AreaScopedCourse keys exams by subject and a mandatory area.
type AreaScopedCourse struct {
	code string
}

func (c TopicOnlyCourse) Code() string  { return c.code }
func (c AreaScopedCourse) Code() string { return c.code }
func (TopicOnlyCourse) course()         {}
func (AreaScopedCourse) course()        {}

func (c TopicOnlyCourse) Scope(subject, _ string) (ExamScope, error) {
	return ExamScope{Course: c.code, Subject: subject}, nil
}

func (c AreaScopedCourse) Scope(subject, area string) (ExamScope, error) {
	if area == "" {
		return ExamScope{}, ErrAreaRequired
	}
	return ExamScope{Course: c.code, Subject: subject, Area: area}, nil
}

// ExamScope is the resolved {course, subject, area} a pool query and a session are keyed on.
type ExamScope struct {
	Course  string `json:"course"`
	Subject string `json:"subject"`
	Area    string `json:"area,omitempty"`
}

// CourseCatalog decides which shape a course code has.
type CourseCatalog struct {
	areaScoped map[string]struct{}
}

// NewCourseCatalog builds a catalog from the list of area-scoped course codes.
func NewCourseCatalog(areaScoped []string) CourseCatalog {
	m := make(map[string]struct{}, len(areaScoped))
	for _, code := range areaScoped {
		m[code] = struct{}{}
	}
	return CourseCatalog{areaScoped: m}
}

// Lookup returns the course shape for a code.
func (c CourseCatalog) Lookup(code string) Course {
	if _, ok := c.areaScoped[code]; ok {
		return AreaScopedCourse{code: code}
	}
	return TopicOnlyCourse{code: code}
}

// TopicFilter selects prior attempts on the same topic: area when given, else subject.
type TopicFilter struct {
	Subject string
	Area    string
}

// Empty reports whether neither subject nor area was supplied.
func (t TopicFilter) Empty() bool {
	return t.Subject == "" && t.Area == ""
}

// Matches reports whether a session covers this topic.
func (t TopicFilter) Matches(s *ExamSession) bool {
	if t.Area != "" {
		return s.Area == t.Area
	}
	return s.Subject == t.Subject
}

// Label is the human-readable topic name.
func (t TopicFilter) Label() string {
	if t.Area != "" {
		return t.Area
	}
	return t.Subject
}
