package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is the stored representation of an organization scoped API key.
// Only the digest of the key is kept, the raw value is never persisted.
type APIKey struct {
	KeyID     uuid.UUID // UUIDv7
	Name      string
	OrgID     uuid.UUID // UUIDv7, FK to organizations
	HashedKey string
	CreatedAt time.Time
}

// AdminAPIKey grants access to the admin routes, it is not scoped to an organization.
type AdminAPIKey struct {
	KeyID     uuid.UUID // UUIDv7
	Name      string
	HashedKey string
	CreatedAt time.Time
}

// APIKeyFull is returned exactly once when a key is generated, it is the
// only value which carries the raw key.
type APIKeyFull struct {
	KeyID  uuid.UUID
	Name   string
	OrgID  uuid.UUID
	RawKey string
}
