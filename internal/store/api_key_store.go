package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/models"
)

// Sentinel errors for API key store operations
var (
	ErrAPIKeyNotFound      = errors.New("api key not found")
	ErrAPIKeyAlreadyExists = errors.New("api key already exists")
)

// APIKeyStore defines the interface for organization API key storage.
// Keys are only ever stored and looked up by their digest.
type APIKeyStore interface {
	// SetAPIKey stores a new key digest for the organization.
	// Returns ErrOrganizationNotFound if the organization doesn't exist and
	// ErrAPIKeyAlreadyExists if the digest is already stored.
	SetAPIKey(ctx context.Context, orgID uuid.UUID, name, hashedKey string) (*models.APIKey, error)

	// FindAPIKeyByHash retrieves a key by digest.
	// Returns ErrAPIKeyNotFound if no key matches.
	FindAPIKeyByHash(ctx context.Context, hashedKey string) (*models.APIKey, error)

	// ListAPIKeys returns all keys for an organization.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	ListAPIKeys(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error)

	// DeleteAPIKey deletes a key by ID.
	// Returns ErrAPIKeyNotFound if the key doesn't exist.
	DeleteAPIKey(ctx context.Context, keyID uuid.UUID) error
}

// AdminAPIKeyStore defines the interface for admin API key storage.
type AdminAPIKeyStore interface {
	// CreateAdminAPIKey stores a new admin key digest.
	// Returns ErrAPIKeyAlreadyExists if the digest is already stored.
	CreateAdminAPIKey(ctx context.Context, name, hashedKey string) (*models.AdminAPIKey, error)

	// FindAdminAPIKeyByHash retrieves an admin key by digest.
	// Returns ErrAPIKeyNotFound if no key matches.
	FindAdminAPIKeyByHash(ctx context.Context, hashedKey string) (*models.AdminAPIKey, error)

	// DeleteAdminAPIKey deletes an admin key by ID.
	// Returns ErrAPIKeyNotFound if the key doesn't exist.
	DeleteAdminAPIKey(ctx context.Context, keyID uuid.UUID) error
}
