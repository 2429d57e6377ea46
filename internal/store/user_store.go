package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserHasOrganizations = errors.New("user still administers organizations")
)

// UserStore defines the interface for user storage operations.
type UserStore interface {
	// GetUserByEmail retrieves a user by exact email.
	// Returns ErrUserNotFound if no user has this email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUser retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// CreateUser creates a new user, passwordHash is nil for admin-provisioned users.
	// Returns ErrUserAlreadyExists if the email is taken, it never silently succeeds.
	CreateUser(ctx context.Context, email string, passwordHash *string, isAdmin bool) (*models.User, error)

	// DeleteUser deletes a user by ID, removing their memberships.
	// Returns ErrUserNotFound if the user doesn't exist and ErrUserHasOrganizations if
	// the user is still the admin of an organization.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}
