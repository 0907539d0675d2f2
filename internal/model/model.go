package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(value)))
	return role, role.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleParent:
		return true
	default:
		return false
	}
}

// Profile is the dashboard's view of a signed-in user, owned by the
// profiles table of the hosted backend.
type Profile struct {
	ID        string
	Email     string
	FullName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExtensionToken is one issued extension credential. Rows are never deleted.
type ExtensionToken struct {
	ID        string
	UserID    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
