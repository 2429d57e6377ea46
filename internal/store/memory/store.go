package memory

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store using in-memory storage.
// All collections share one lock so that cross-collection checks (key -> org,
// org -> admin) and cascades are atomic.
// This implementation is for testing and development only - data is lost on restart.
type Store struct {
	mu sync.RWMutex

	users        map[uuid.UUID]*models.User // user_id -> User
	usersByEmail map[string]uuid.UUID       // email -> user_id

	organizations map[uuid.UUID]*models.Organization // org_id -> Organization

	apiKeys       map[uuid.UUID]*models.APIKey // key_id -> APIKey
	apiKeysByHash map[string]uuid.UUID         // hashed_key -> key_id

	adminKeys       map[uuid.UUID]*models.AdminAPIKey // key_id -> AdminAPIKey
	adminKeysByHash map[string]uuid.UUID              // hashed_key -> key_id
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		users:           make(map[uuid.UUID]*models.User),
		usersByEmail:    make(map[string]uuid.UUID),
		organizations:   make(map[uuid.UUID]*models.Organization),
		apiKeys:         make(map[uuid.UUID]*models.APIKey),
		apiKeysByHash:   make(map[string]uuid.UUID),
		adminKeys:       make(map[uuid.UUID]*models.AdminAPIKey),
		adminKeysByHash: make(map[string]uuid.UUID),
	}
}

// cloneOrganization copies an organization including its member slice and customer id
// so callers can't modify stored state.
func cloneOrganization(org *models.Organization) *models.Organization {
	clone := *org
	clone.Members = slices.Clone(org.Members)
	if org.CustomerID != nil {
		customerID := *org.CustomerID
		clone.CustomerID = &customerID
	}
	return &clone
}

func cloneUser(user *models.User) *models.User {
	clone := *user
	if user.PasswordHash != nil {
		hash := *user.PasswordHash
		clone.PasswordHash = &hash
	}
	return &clone
}
