package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
)

// CreateOrganization creates an organization administered by adminID.
func (m *Manager) CreateOrganization(ctx context.Context, name string, adminID uuid.UUID) (*models.Organization, error) {
	org, err := m.store.CreateOrganization(ctx, name, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	log.Info().
		Str("org_id", org.OrgID.String()).
		Str("user_id", adminID.String()).
		Msg("Created organization")

	return org, nil
}

// GetOrganization returns the organization if userID is its admin or a member.
// Returns store.ErrOrganizationNotFound otherwise, existence is not disclosed.
func (m *Manager) GetOrganization(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error) {
	org, err := m.store.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListOrganizations returns every organization userID administers or belongs to.
func (m *Manager) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	orgs, err := m.store.ListOrganizations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// DeleteOrganization deletes the organization and its keys.
// adminID must be exactly the organization admin, else store.ErrNotOrganizationAdmin.
func (m *Manager) DeleteOrganization(ctx context.Context, orgID, adminID uuid.UUID) error {
	if err := m.store.DeleteOrganization(ctx, orgID, adminID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	log.Info().
		Str("org_id", orgID.String()).
		Str("user_id", adminID.String()).
		Msg("Deleted organization")

	return nil
}

// AddMember adds userID to the organization on behalf of adminID.
func (m *Manager) AddMember(ctx context.Context, orgID, adminID, userID uuid.UUID) error {
	if err := m.requireAdmin(ctx, orgID, adminID); err != nil {
		return err
	}

	if err := m.store.AddMember(ctx, orgID, userID); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	log.Info().
		Str("org_id", orgID.String()).
		Str("user_id", userID.String()).
		Msg("Added organization member")

	return nil
}

// RemoveMember removes userID from the organization on behalf of adminID.
// The admin can't be removed.
func (m *Manager) RemoveMember(ctx context.Context, orgID, adminID, userID uuid.UUID) error {
	if err := m.requireAdmin(ctx, orgID, adminID); err != nil {
		return err
	}

	if err := m.store.RemoveMember(ctx, orgID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	log.Info().
		Str("org_id", orgID.String()).
		Str("user_id", userID.String()).
		Msg("Removed organization member")

	return nil
}

// requireAdmin applies the same exact-match rule as DeleteOrganization.
// A caller who can't see the organization gets ErrNotOrganizationAdmin rather than not found.
func (m *Manager) requireAdmin(ctx context.Context, orgID, adminID uuid.UUID) error {
	org, err := m.store.GetOrganization(ctx, orgID, adminID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return store.ErrNotOrganizationAdmin
		}
		return fmt.Errorf("failed to get organization: %w", err)
	}

	if !org.IsAdmin(adminID) {
		return store.ErrNotOrganizationAdmin
	}

	return nil
}
