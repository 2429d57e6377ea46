package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account which can administer or belong to organizations.
type User struct {
	UserID uuid.UUID // UUIDv7
	Email  string    // unique, compared case-sensitively

	// Absent for admin-provisioned users, they authenticate through API keys
	PasswordHash *string

	IsAdmin bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword returns true if the user can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
