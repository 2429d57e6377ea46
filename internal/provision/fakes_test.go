package provision

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/credentials"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store/memory"
)

// faultyRecords wraps the memory store, any hook that returns an error fails the call.
type faultyRecords struct {
	*memory.Store

	mu    sync.Mutex
	calls []string

	getUserByEmail func(email string) error
	createUser     func(email string) error
	deleteUser     func(userID uuid.UUID) error
	setCustomerID  func(orgID uuid.UUID) error
}

func (f *faultyRecords) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *faultyRecords) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *faultyRecords) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.record("GetUserByEmail")
	if f.getUserByEmail != nil {
		if err := f.getUserByEmail(email); err != nil {
			return nil, err
		}
	}
	return f.Store.GetUserByEmail(ctx, email)
}

func (f *faultyRecords) CreateUser(ctx context.Context, email string, passwordHash *string, isAdmin bool) (*models.User, error) {
	f.record("CreateUser")
	if f.createUser != nil {
		if err := f.createUser(email); err != nil {
			return nil, err
		}
	}
	return f.Store.CreateUser(ctx, email, passwordHash, isAdmin)
}

func (f *faultyRecords) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	f.record("DeleteUser")
	if f.deleteUser != nil {
		if err := f.deleteUser(userID); err != nil {
			return err
		}
	}
	return f.Store.DeleteUser(ctx, userID)
}

func (f *faultyRecords) SetCustomerID(ctx context.Context, orgID uuid.UUID, customerID string) error {
	f.record("SetCustomerID")
	if f.setCustomerID != nil {
		if err := f.setCustomerID(orgID); err != nil {
			return err
		}
	}
	return f.Store.SetCustomerID(ctx, orgID, customerID)
}

// faultyCredentials wraps a credentials.Manager the same way.
type faultyCredentials struct {
	*credentials.Manager
	records *faultyRecords

	createOrganization func(ctx context.Context, org *models.Organization) error
	deleteOrganization func(orgID uuid.UUID) error
	generateAPIKey     func(orgID uuid.UUID) error
}

func (f *faultyCredentials) CreateOrganization(ctx context.Context, name string, adminID uuid.UUID) (*models.Organization, error) {
	f.records.record("CreateOrganization")
	org, err := f.Manager.CreateOrganization(ctx, name, adminID)
	if err != nil {
		return nil, err
	}
	if f.createOrganization != nil {
		if err := f.createOrganization(ctx, org); err != nil {
			return nil, err
		}
	}
	return org, nil
}

func (f *faultyCredentials) DeleteOrganization(ctx context.Context, orgID, adminID uuid.UUID) error {
	f.records.record("DeleteOrganization")
	if f.deleteOrganization != nil {
		if err := f.deleteOrganization(orgID); err != nil {
			return err
		}
	}
	return f.Manager.DeleteOrganization(ctx, orgID, adminID)
}

func (f *faultyCredentials) GenerateAPIKey(ctx context.Context, orgID uuid.UUID, name string) (*models.APIKeyFull, error) {
	f.records.record("GenerateAPIKey")
	if f.generateAPIKey != nil {
		if err := f.generateAPIKey(orgID); err != nil {
			return nil, err
		}
	}
	return f.Manager.GenerateAPIKey(ctx, orgID, name)
}

func (f *faultyCredentials) DeleteAPIKey(ctx context.Context, keyID uuid.UUID) error {
	f.records.record("DeleteAPIKey")
	return f.Manager.DeleteAPIKey(ctx, keyID)
}
