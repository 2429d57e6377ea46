// Package credentials manages the lifecycle of organization and admin API keys
// and the organizations they are scoped to.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeys/internal/apikey"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
	"github.com/wolfeidau/orgkeys/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sentinel errors for key verification
var (
	ErrKeyNotFound = errors.New("api key not found")
	ErrKeyInvalid  = errors.New("api key invalid")
)

// Manager issues, verifies and deletes API keys and manages organizations.
// Raw keys are returned exactly once, on creation, and are never logged or stored.
type Manager struct {
	store store.Store
	cfg   Config
}

// NewManager creates a credential manager backed by s.
func NewManager(s store.Store, cfg Config) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials config: %w", err)
	}

	return &Manager{store: s, cfg: cfg}, nil
}

// GenerateAPIKey issues a new organization key.
// Returns store.ErrOrganizationNotFound if the organization doesn't exist.
func (m *Manager) GenerateAPIKey(ctx context.Context, orgID uuid.UUID, name string) (*models.APIKeyFull, error) {
	rawKey, digest, err := apikey.CreateKey(m.cfg.prefix(KindOrganization))
	if err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	key, err := m.store.SetAPIKey(ctx, orgID, name, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to store api key: %w", err)
	}

	recordIssued(ctx, KindOrganization)

	log.Info().
		Str("key_id", key.KeyID.String()).
		Str("org_id", orgID.String()).
		Str("name", name).
		Msg("Issued api key")

	return &models.APIKeyFull{
		KeyID:  key.KeyID,
		Name:   key.Name,
		OrgID:  key.OrgID,
		RawKey: rawKey,
	}, nil
}

// VerifyAPIKey resolves a raw organization key to its record.
// Returns ErrKeyNotFound if no key matches and ErrKeyInvalid if the stored digest doesn't verify.
func (m *Manager) VerifyAPIKey(ctx context.Context, rawKey string) (*models.APIKey, error) {
	if !apikey.HasPrefix(rawKey, m.cfg.prefix(KindOrganization)) {
		recordVerification(ctx, KindOrganization, "malformed")
		return nil, ErrKeyNotFound
	}

	key, err := m.store.FindAPIKeyByHash(ctx, apikey.HashKey(rawKey))
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			recordVerification(ctx, KindOrganization, "not_found")
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to find api key: %w", err)
	}

	if !apikey.VerifyKey(rawKey, key.HashedKey) {
		recordVerification(ctx, KindOrganization, "invalid")
		return nil, ErrKeyInvalid
	}

	recordVerification(ctx, KindOrganization, "valid")

	return key, nil
}

// IsAdminAPIKey resolves a raw admin key to its record.
// Returns ErrKeyNotFound if no admin key matches and ErrKeyInvalid if the stored digest doesn't verify.
func (m *Manager) IsAdminAPIKey(ctx context.Context, rawKey string) (*models.AdminAPIKey, error) {
	if !apikey.HasPrefix(rawKey, m.cfg.prefix(KindAdmin)) {
		recordVerification(ctx, KindAdmin, "malformed")
		return nil, ErrKeyNotFound
	}

	key, err := m.store.FindAdminAPIKeyByHash(ctx, apikey.HashKey(rawKey))
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			recordVerification(ctx, KindAdmin, "not_found")
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to find admin api key: %w", err)
	}

	if !apikey.VerifyKey(rawKey, key.HashedKey) {
		recordVerification(ctx, KindAdmin, "invalid")
		return nil, ErrKeyInvalid
	}

	recordVerification(ctx, KindAdmin, "valid")

	return key, nil
}

// DeleteAPIKey deletes an organization key.
// Returns store.ErrAPIKeyNotFound if the key doesn't exist.
func (m *Manager) DeleteAPIKey(ctx context.Context, keyID uuid.UUID) error {
	if err := m.store.DeleteAPIKey(ctx, keyID); err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}

	recordDeleted(ctx, KindOrganization)
	log.Info().Str("key_id", keyID.String()).Msg("Deleted api key")

	return nil
}

// ListAPIKeys returns key metadata for an organization, digests included but never raw keys.
func (m *Manager) ListAPIKeys(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	keys, err := m.store.ListAPIKeys(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// CreateAdminAPIKey issues a new admin key.
func (m *Manager) CreateAdminAPIKey(ctx context.Context, name string) (*models.APIKeyFull, error) {
	rawKey, digest, err := apikey.CreateKey(m.cfg.prefix(KindAdmin))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin api key: %w", err)
	}

	key, err := m.store.CreateAdminAPIKey(ctx, name, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to store admin api key: %w", err)
	}

	recordIssued(ctx, KindAdmin)

	return &models.APIKeyFull{
		KeyID:  key.KeyID,
		Name:   key.Name,
		RawKey: rawKey,
	}, nil
}

// DeleteAdminAPIKey deletes an admin key.
func (m *Manager) DeleteAdminAPIKey(ctx context.Context, keyID uuid.UUID) error {
	if err := m.store.DeleteAdminAPIKey(ctx, keyID); err != nil {
		return fmt.Errorf("failed to delete admin api key: %w", err)
	}

	recordDeleted(ctx, KindAdmin)
	log.Info().Str("key_id", keyID.String()).Msg("Deleted admin api key")

	return nil
}

func recordIssued(ctx context.Context, kind KeyKind) {
	telemetry.GetMetrics().KeysIssuedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", string(kind))))
}

func recordDeleted(ctx context.Context, kind KeyKind) {
	telemetry.GetMetrics().KeysDeletedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", string(kind))))
}

func recordVerification(ctx context.Context, kind KeyKind, result string) {
	telemetry.GetMetrics().KeyVerificationsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("result", result),
		))
}
