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

// CreateOrganization creates a new organization in memory.
func (s *Store) CreateOrganization(ctx context.Context, name string, adminID uuid.UUID) (*models.Organization, error) {
	orgID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[adminID]; !exists {
		return nil, store.ErrUserNotFound
	}

	now := time.Now()
	org := &models.Organization{
		OrgID:       orgID,
		Name:        name,
		AdminUserID: adminID,
		Members:     []uuid.UUID{adminID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.organizations[orgID] = org

	return cloneOrganization(org), nil
}

// GetOrganization retrieves an organization visible to the user.
func (s *Store) GetOrganization(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists || !org.HasMember(userID) {
		return nil, store.ErrOrganizationNotFound
	}

	return cloneOrganization(org), nil
}

// ListOrganizations returns all organizations the user administers or belongs to.
func (s *Store) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.Organization{}
	for _, org := range s.organizations {
		if org.HasMember(userID) {
			result = append(result, cloneOrganization(org))
		}
	}

	// Map iteration order is random, keep output stable (UUIDv7 sorts by creation time)
	slices.SortFunc(result, func(a, b *models.Organization) int {
		return bytes.Compare(a.OrgID[:], b.OrgID[:])
	})

	return result, nil
}

// DeleteOrganization deletes an organization and its API keys.
func (s *Store) DeleteOrganization(ctx context.Context, orgID, adminID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	if !org.IsAdmin(adminID) {
		return store.ErrNotOrganizationAdmin
	}

	// Cascade to keys, mirroring the FK in postgres
	for keyID, key := range s.apiKeys {
		if key.OrgID == orgID {
			delete(s.apiKeysByHash, key.HashedKey)
			delete(s.apiKeys, keyID)
		}
	}

	delete(s.organizations, orgID)

	return nil
}

// SetCustomerID binds a billing identity to the organization, only once.
func (s *Store) SetCustomerID(ctx context.Context, orgID uuid.UUID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	if org.HasCustomerID() {
		return store.ErrCustomerIDAlreadySet
	}

	org.CustomerID = &customerID
	org.UpdatedAt = time.Now()

	return nil
}

// AddMember adds a user to the organization.
func (s *Store) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	if _, exists := s.users[userID]; !exists {
		return store.ErrUserNotFound
	}

	if org.HasMember(userID) {
		return store.ErrMemberAlreadyExists
	}

	org.Members = append(org.Members, userID)
	org.UpdatedAt = time.Now()

	return nil
}

// RemoveMember removes a user from the organization.
func (s *Store) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	if org.IsAdmin(userID) {
		return store.ErrCannotRemoveAdmin
	}

	idx := slices.Index(org.Members, userID)
	if idx == -1 {
		return store.ErrMemberNotFound
	}

	org.Members = slices.Delete(org.Members, idx, idx+1)
	org.UpdatedAt = time.Now()

	return nil
}
