package service

import "errors"

// Domain errors. Handlers map these onto response codes with errors.Is.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrCourseMismatch    = errors.New("requested course does not match the enrolled course")
	ErrAreaRequired      = errors.New("area is required for this course")
	ErrTopicRequired     = errors.New("subject or area is required")
	ErrNoQuestions       = errors.New("no questions available")
	ErrAlreadyTakenToday = errors.New("exam already taken today for this topic")
	ErrSessionNotFound   = errors.New("exam session not found")
	ErrSessionGraded     = errors.New("exam session already submitted")
	ErrResultNotFound    = errors.New("exam result not found")
	ErrForbiddenScope    = errors.New("not allowed to read this data")
	ErrInvalidAnswer     = errors.New("answer is not a valid option label")
)
