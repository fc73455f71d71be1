// Package user defines the user profile and role model.
package user

import (
	"strings"
	"time"
)

// Role represents the authorization level of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// DefaultRole is assumed whenever a role is missing or cannot be read.
const DefaultRole = RoleStudent

// ValidRoles is the set of all valid user roles.
var ValidRoles = map[Role]bool{
	RoleStudent: true,
	RoleTeacher: true,
	RoleAdmin:   true,
}

// ParseRole normalizes a stored role value. Unknown or empty values map to
// DefaultRole (student), the same role assumed when no profile exists, so a
// malformed profile can still create tasks.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !ValidRoles[r] {
		return DefaultRole
	}
	return r
}

// CanCreateTasks reports whether the role may persist tasks.
func (r Role) CanCreateTasks() bool {
	return r == RoleStudent
}

// User is the stored profile of a StudyMate user, including the timer
// aggregates maintained by the study timer client.
type User struct {
	ID                 string    `json:"id"`
	Role               Role      `json:"role"`
	CompletedPomodoros int       `json:"completedPomodoros"`
	PresentTime        int       `json:"presentTime"` // minutes
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
