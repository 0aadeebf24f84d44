package model

import "fmt"

// Role is the caller's platform role as asserted by the identity service.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// ParseRole rejects roles outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsStaff reports whether the role may read other users' exam data.
func (r Role) IsStaff() bool {
	switch r {
	case RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User is the identity record consulted for authorization and course matching.
type User struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Role           Role    `json:"role"`
	EnrolledCourse *string `json:"enrolled_course,omitempty"`
}
