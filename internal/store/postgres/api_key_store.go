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

// SetAPIKey stores a new key digest for the organization.
func (s *Store) SetAPIKey(ctx context.Context, orgID uuid.UUID, name, hashedKey string) (*models.APIKey, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keyID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	key := &models.APIKey{
		KeyID:     keyID,
		Name:      name,
		OrgID:     orgID,
		HashedKey: hashedKey,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO api_keys (key_id, name, org_id, hashed_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, key.KeyID, key.Name, key.OrgID, key.HashedKey, key.CreatedAt)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return nil, store.ErrOrganizationNotFound
		case isUniqueViolation(err):
			return nil, store.ErrAPIKeyAlreadyExists
		}
		return nil, mapPostgresError("set api key", err)
	}

	log.Debug().
		Str("key_id", key.KeyID.String()).
		Str("org_id", orgID.String()).
		Msg("Stored api key")

	return key, nil
}

// FindAPIKeyByHash retrieves a key by digest.
func (s *Store) FindAPIKeyByHash(ctx context.Context, hashedKey string) (*models.APIKey, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var key models.APIKey
	err := s.pool.QueryRow(ctx, `
		SELECT key_id, name, org_id, hashed_key, created_at
		FROM api_keys WHERE hashed_key = $1
	`, hashedKey).Scan(&key.KeyID, &key.Name, &key.OrgID, &key.HashedKey, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		return nil, mapPostgresError("find api key", err)
	}

	return &key, nil
}

// ListAPIKeys returns all keys for an organization.
func (s *Store) ListAPIKeys(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT key_id, name, org_id, hashed_key, created_at
		FROM api_keys WHERE org_id = $1
		ORDER BY key_id
	`, orgID)
	if err != nil {
		return nil, mapPostgresError("list api keys", err)
	}
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		var key models.APIKey
		if err := rows.Scan(&key.KeyID, &key.Name, &key.OrgID, &key.HashedKey, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}

	// keys cascade with their organization, so no rows can also mean no organization
	if len(keys) == 0 {
		exists, err := s.organizationExists(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, store.ErrOrganizationNotFound
		}
	}

	return keys, nil
}

// DeleteAPIKey deletes a key by ID.
func (s *Store) DeleteAPIKey(ctx context.Context, keyID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE key_id = $1`, keyID)
	if err != nil {
		return mapPostgresError("delete api key", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}

	return nil
}

// CreateAdminAPIKey stores a new admin key digest.
func (s *Store) CreateAdminAPIKey(ctx context.Context, name, hashedKey string) (*models.AdminAPIKey, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keyID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	key := &models.AdminAPIKey{
		KeyID:     keyID,
		Name:      name,
		HashedKey: hashedKey,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO admin_api_keys (key_id, name, hashed_key, created_at)
		VALUES ($1, $2, $3, $4)
	`, key.KeyID, key.Name, key.HashedKey, key.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAPIKeyAlreadyExists
		}
		return nil, mapPostgresError("create admin api key", err)
	}

	log.Info().Str("key_id", key.KeyID.String()).Str("name", name).Msg("Created admin api key")

	return key, nil
}

// FindAdminAPIKeyByHash retrieves an admin key by digest.
func (s *Store) FindAdminAPIKeyByHash(ctx context.Context, hashedKey string) (*models.AdminAPIKey, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var key models.AdminAPIKey
	err := s.pool.QueryRow(ctx, `
		SELECT key_id, name, hashed_key, created_at
		FROM admin_api_keys WHERE hashed_key = $1
	`, hashedKey).Scan(&key.KeyID, &key.Name, &key.HashedKey, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		return nil, mapPostgresError("find admin api key", err)
	}

	return &key, nil
}

// DeleteAdminAPIKey deletes an admin key by ID.
func (s *Store) DeleteAdminAPIKey(ctx context.Context, keyID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, `DELETE FROM admin_api_keys WHERE key_id = $1`, keyID)
	if err != nil {
		return mapPostgresError("delete admin api key", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}

	return nil
}
