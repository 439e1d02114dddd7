package models

import (
	"strings"
	"time"
)

// UserRole is fixed at signup; no update path changes it.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleFaculty UserRole = "FACULTY"
)

// ParseRole accepts "student"/"faculty" in any case.
func ParseRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Valid returns true for supported roles.
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile is the display data attached to rows that reference a user.
type Profile struct {
	ID       string   `db:"id" json:"id"`
	FullName string   `db:"full_name" json:"full_name"`
	Email    string   `db:"email" json:"email,omitempty"`
	Role     UserRole `db:"role" json:"role"`
}

// ProfileFilter scopes directory listings.
type ProfileFilter struct {
	Role   UserRole
	Search string
}

// UpdateProfileRequest changes the caller's display name.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
}
