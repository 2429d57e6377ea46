package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
)

// GetUserByEmail retrieves a user by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.usersByEmail[email]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(s.users[userID]), nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(user), nil
}

// CreateUser creates a new user in memory.
func (s *Store) CreateUser(ctx context.Context, email string, passwordHash *string, isAdmin bool) (*models.User, error) {
	userID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicate email
	if _, exists := s.usersByEmail[email]; exists {
		return nil, store.ErrUserAlreadyExists
	}

	now := time.Now()
	user := &models.User{
		UserID:    userID,
		Email:     email,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if passwordHash != nil {
		hash := *passwordHash
		user.PasswordHash = &hash
	}

	s.users[userID] = user
	s.usersByEmail[email] = userID

	return cloneUser(user), nil
}

// DeleteUser deletes a user by ID and removes their memberships.
// Organizations administered by the user are not deleted, callers remove those first.
func (s *Store) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}

	for _, org := range s.organizations {
		if org.IsAdmin(userID) {
			return store.ErrUserHasOrganizations
		}
	}

	for _, org := range s.organizations {
		org.Members = slices.DeleteFunc(org.Members, func(id uuid.UUID) bool {
			return id == userID
		})
	}

	delete(s.usersByEmail, user.Email)
	delete(s.users, userID)

	return nil
}
