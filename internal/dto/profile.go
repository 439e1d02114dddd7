package dto

import "github.com/noah-isme/campus-portal-api/internal/models"

// ProfileRef is the display data attached to rows referencing a user.
// A nil *ProfileRef renders as null when the user is unknown.
type ProfileRef struct {
	ID       string          `json:"id"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role"`
}

// NewProfileRef converts a resolved profile.
func NewProfileRef(p models.Profile) *ProfileRef {
	return &ProfileRef{ID: p.ID, FullName: p.FullName, Role: p.Role}
}
