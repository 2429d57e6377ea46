package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
)

// Members come back in join order so the admin, who is inserted with the organization, stays first.
const organizationSelect = `
	SELECT o.org_id, o.name, o.admin_user_id, o.customer_id, o.created_at, o.updated_at,
		ARRAY(
			SELECT m.user_id::text FROM organization_members m
			WHERE m.org_id = o.org_id
			ORDER BY m.created_at, m.user_id
		) AS members
	FROM organizations o
`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var (
		org     models.Organization
		members []string
	)

	err := row.Scan(
		&org.OrgID,
		&org.Name,
		&org.AdminUserID,
		&org.CustomerID,
		&org.CreatedAt,
		&org.UpdatedAt,
		&members,
	)
	if err != nil {
		return nil, err
	}

	org.Members = make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("invalid member id %q: %w", m, err)
		}
		org.Members = append(org.Members, id)
	}

	return &org, nil
}

// CreateOrganization inserts the organization and its admin membership in one transaction.
func (s *Store) CreateOrganization(ctx context.Context, name string, adminID uuid.UUID) (*models.Organization, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	orgID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organization id: %w", err)
	}

	now := time.Now().UTC()
	org := &models.Organization{
		OrgID:       orgID,
		Name:        name,
		AdminUserID: adminID,
		Members:     []uuid.UUID{adminID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO organizations (org_id, name, admin_user_id, customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, $4, $5)
	`, org.OrgID, org.Name, org.AdminUserID, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrUserNotFound
		}
		return nil, mapPostgresError("create organization", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO organization_members (org_id, user_id, created_at)
		VALUES ($1, $2, $3)
	`, org.OrgID, adminID, now)
	if err != nil {
		return nil, mapPostgresError("add organization admin", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPostgresError("commit organization", err)
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("admin_user_id", adminID.String()).
		Msg("Created organization")

	return org, nil
}

// GetOrganization retrieves an organization visible to the user.
func (s *Store) GetOrganization(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	org, err := scanOrganization(s.pool.QueryRow(ctx, organizationSelect+`
		WHERE o.org_id = $1
		AND (o.admin_user_id = $2 OR EXISTS (
			SELECT 1 FROM organization_members m WHERE m.org_id = o.org_id AND m.user_id = $2
		))
	`, orgID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, mapPostgresError("get organization", err)
	}

	return org, nil
}

// ListOrganizations returns all organizations the user administers or belongs to.
func (s *Store) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, organizationSelect+`
		WHERE o.admin_user_id = $1 OR EXISTS (
			SELECT 1 FROM organization_members m WHERE m.org_id = o.org_id AND m.user_id = $1
		)
		ORDER BY o.org_id
	`, userID)
	if err != nil {
		return nil, mapPostgresError("list organizations", err)
	}
	defer rows.Close()

	orgs := []*models.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

// DeleteOrganization deletes an organization if adminID is its admin.
// Memberships and API keys cascade via FK.
func (s *Store) DeleteOrganization(ctx context.Context, orgID, adminID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1 AND admin_user_id = $2`, orgID, adminID)
	if err != nil {
		return mapPostgresError("delete organization", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := s.organizationExists(ctx, orgID)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrOrganizationNotFound
		}
		return store.ErrNotOrganizationAdmin
	}

	log.Info().
		Str("org_id", orgID.String()).
		Msg("Deleted organization (and cascade-deleted members and api keys)")

	return nil
}

// SetCustomerID binds the customer id if none is bound yet.
func (s *Store) SetCustomerID(ctx context.Context, orgID uuid.UUID, customerID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `
		UPDATE organizations SET customer_id = $2, updated_at = $3
		WHERE org_id = $1 AND (customer_id IS NULL OR customer_id = '')
	`, orgID, customerID, time.Now().UTC())
	if err != nil {
		return mapPostgresError("set customer id", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := s.organizationExists(ctx, orgID)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrOrganizationNotFound
		}
		return store.ErrCustomerIDAlreadySet
	}

	return nil
}

// AddMember adds a user to the organization.
func (s *Store) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.organizationExists(ctx, orgID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrOrganizationNotFound
	}

	result, err := s.pool.Exec(ctx, `
		INSERT INTO organization_members (org_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, user_id) DO NOTHING
	`, orgID, userID, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			// the organization was checked above, a concurrent delete reads the same as a missing user
			return store.ErrUserNotFound
		}
		return mapPostgresError("add member", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrMemberAlreadyExists
	}

	return nil
}

// RemoveMember removes a non-admin user from the organization.
func (s *Store) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var adminID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT admin_user_id FROM organizations WHERE org_id = $1`, orgID).Scan(&adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrOrganizationNotFound
		}
		return mapPostgresError("remove member", err)
	}

	if adminID == userID {
		return store.ErrCannotRemoveAdmin
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM organization_members WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return mapPostgresError("remove member", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrMemberNotFound
	}

	return nil
}

func (s *Store) organizationExists(ctx context.Context, orgID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE org_id = $1)`, orgID).Scan(&exists)
	if err != nil {
		return false, mapPostgresError("check organization", err)
	}
	return exists, nil
}
