package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrStaffAccessOnly ErrCode = "STAFF_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrConflict     ErrCode = "CONFLICT"
	ErrUserNotFound ErrCode = "USER_NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrCourseMismatch    ErrCode = "COURSE_MISMATCH"
	ErrAreaRequired      ErrCode = "AREA_REQUIRED"
	ErrTopicRequired     ErrCode = "TOPIC_REQUIRED"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrAlreadyTakenToday ErrCode = "ALREADY_TAKEN_TODAY"
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrSessionSubmitted  ErrCode = "SESSION_ALREADY_SUBMITTED"
	ErrResultNotFound    ErrCode = "RESULT_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrStaffAccessOnly:
		return "This resource is only available to instructors and administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "The submitted data is invalid."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Malformed request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The request conflicts with the current state."
	case ErrUserNotFound:
		return "User not found."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrCourseMismatch:
		return "The requested course does not match your enrolled course."
	case ErrAreaRequired:
		return "An area is required for this course."
	case ErrTopicRequired:
		return "A subject or area is required."
	case ErrNoQuestions:
		return "No questions are available for this topic."
	case ErrAlreadyTakenToday:
		return "You already took this exam today. Please try again tomorrow."
	case ErrSessionNotFound:
		return "Exam session not found."
	case ErrSessionSubmitted:
		return "This exam session has already been submitted."
	case ErrResultNotFound:
		return "Exam result not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please slow down."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."

	default:
		return "An unknown error occurred."
	}
}
