package memory

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
)

// SetAPIKey stores a new key digest for the organization.
func (s *Store) SetAPIKey(ctx context.Context, orgID uuid.UUID, name, hashedKey string) (*models.APIKey, error) {
	keyID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[orgID]; !exists {
		return nil, store.ErrOrganizationNotFound
	}

	if _, exists := s.apiKeysByHash[hashedKey]; exists {
		return nil, store.ErrAPIKeyAlreadyExists
	}

	key := &models.APIKey{
		KeyID:     keyID,
		Name:      name,
		OrgID:     orgID,
		HashedKey: hashedKey,
		CreatedAt: time.Now(),
	}
	s.apiKeys[keyID] = key
	s.apiKeysByHash[hashedKey] = keyID

	clone := *key
	return &clone, nil
}

// FindAPIKeyByHash retrieves a key by digest.
func (s *Store) FindAPIKeyByHash(ctx context.Context, hashedKey string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyID, exists := s.apiKeysByHash[hashedKey]
	if !exists {
		return nil, store.ErrAPIKeyNotFound
	}

	clone := *s.apiKeys[keyID]
	return &clone, nil
}

// ListAPIKeys returns all keys for an organization, oldest first.
func (s *Store) ListAPIKeys(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.organizations[orgID]; !exists {
		return nil, store.ErrOrganizationNotFound
	}

	result := []*models.APIKey{}
	for _, key := range s.apiKeys {
		if key.OrgID == orgID {
			clone := *key
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.APIKey) int {
		return bytes.Compare(a.KeyID[:], b.KeyID[:])
	})

	return result, nil
}

// DeleteAPIKey deletes a key by ID.
func (s *Store) DeleteAPIKey(ctx context.Context, keyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.apiKeys[keyID]
	if !exists {
		return store.ErrAPIKeyNotFound
	}

	delete(s.apiKeysByHash, key.HashedKey)
	delete(s.apiKeys, keyID)

	return nil
}

// CreateAdminAPIKey stores a new admin key digest.
func (s *Store) CreateAdminAPIKey(ctx context.Context, name, hashedKey string) (*models.AdminAPIKey, error) {
	keyID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.adminKeysByHash[hashedKey]; exists {
		return nil, store.ErrAPIKeyAlreadyExists
	}

	key := &models.AdminAPIKey{
		KeyID:     keyID,
		Name:      name,
		HashedKey: hashedKey,
		CreatedAt: time.Now(),
	}
	s.adminKeys[keyID] = key
	s.adminKeysByHash[hashedKey] = keyID

	clone := *key
	return &clone, nil
}

// FindAdminAPIKeyByHash retrieves an admin key by digest.
func (s *Store) FindAdminAPIKeyByHash(ctx context.Context, hashedKey string) (*models.AdminAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyID, exists := s.adminKeysByHash[hashedKey]
	if !exists {
		return nil, store.ErrAPIKeyNotFound
	}

	clone := *s.adminKeys[keyID]
	return &clone, nil
}

// DeleteAdminAPIKey deletes an admin key by ID.
func (s *Store) DeleteAdminAPIKey(ctx context.Context, keyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.adminKeys[keyID]
	if !exists {
		return store.ErrAPIKeyNotFound
	}

	delete(s.adminKeysByHash, key.HashedKey)
	delete(s.adminKeys, keyID)

	return nil
}
