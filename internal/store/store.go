package store

// Store is the record store the credential manager and the provisioning
// orchestrator depend on. Implementations must enforce uniqueness of user
// emails and key digests, a single admin per organization and the write-once
// customer id themselves; callers hold no locks across operations.
type Store interface {
	UserStore
	OrganizationStore
	APIKeyStore
	AdminAPIKeyStore
}
