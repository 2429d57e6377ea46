package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrNotOrganizationAdmin = errors.New("user is not the organization admin")
	ErrCustomerIDAlreadySet = errors.New("organization customer id already set")
	ErrMemberAlreadyExists  = errors.New("user is already a member of the organization")
	ErrMemberNotFound       = errors.New("user is not a member of the organization")
	ErrCannotRemoveAdmin    = errors.New("organization admin cannot be removed")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations represent tenants in the system, each has one admin and any number of members.
type OrganizationStore interface {
	// CreateOrganization creates an organization with adminID as its admin and first member.
	// Returns ErrUserNotFound if the admin doesn't exist.
	CreateOrganization(ctx context.Context, name string, adminID uuid.UUID) (*models.Organization, error)

	// GetOrganization retrieves an organization visible to userID, which must be the admin or a member.
	// Returns ErrOrganizationNotFound if it doesn't exist or isn't visible to the user.
	GetOrganization(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error)

	// ListOrganizations returns all organizations the user administers or belongs to.
	ListOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)

	// DeleteOrganization deletes an organization, cascading to its API keys.
	// Returns ErrNotOrganizationAdmin unless adminID matches the recorded admin.
	DeleteOrganization(ctx context.Context, orgID, adminID uuid.UUID) error

	// SetCustomerID binds an external billing identity to the organization.
	// Returns ErrCustomerIDAlreadySet if one is already bound and ErrOrganizationNotFound if the
	// organization doesn't exist.
	SetCustomerID(ctx context.Context, orgID uuid.UUID, customerID string) error

	// AddMember adds a user to the organization.
	// Returns ErrMemberAlreadyExists if the user is already the admin or a member.
	AddMember(ctx context.Context, orgID, userID uuid.UUID) error

	// RemoveMember removes a user from the organization.
	// Returns ErrCannotRemoveAdmin for the admin and ErrMemberNotFound for non-members.
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
}
