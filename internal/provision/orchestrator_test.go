package provision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeys/internal/credentials"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/store"
	"github.com/wolfeidau/orgkeys/internal/store/memory"
)

var errInjected = errors.New("injected failure")

type fixture struct {
	store   *memory.Store
	records *faultyRecords
	creds   *faultyCredentials
	manager *credentials.Manager
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := memory.NewStore()
	manager, err := credentials.NewManager(s, credentials.DefaultConfig())
	require.NoError(t, err)

	records := &faultyRecords{Store: s}
	creds := &faultyCredentials{Manager: manager, records: records}

	orch, err := NewOrchestrator(records, creds, Config{CleanupTimeout: 5 * time.Second})
	require.NoError(t, err)

	return &fixture{store: s, records: records, creds: creds, manager: manager, orch: orch}
}

func validRequest() Request {
	return Request{
		Email:            "a@x.com",
		OrganizationName: "Acme",
		APIKeyName:       "default",
	}
}

func requireProvisionError(t *testing.T, err error) *Error {
	t.Helper()

	var perr *Error
	require.ErrorAs(t, err, &perr)
	return perr
}

func TestProvisionSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.orch.Provision(ctx, validRequest())
	require.NoError(t, err)
	require.Nil(t, result.CustomerID)

	user, err := f.store.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, user.UserID, result.UserID)
	require.Nil(t, user.PasswordHash)

	org, err := f.manager.GetOrganization(ctx, result.OrganizationID, result.UserID)
	require.NoError(t, err)
	require.Equal(t, "Acme", org.Name)
	require.True(t, org.IsAdmin(user.UserID))

	key, err := f.manager.VerifyAPIKey(ctx, result.APIKey.RawKey)
	require.NoError(t, err)
	require.Equal(t, result.APIKey.KeyID, key.KeyID)
	require.Equal(t, result.OrganizationID, key.OrgID)
	require.Equal(t, "default", result.APIKey.Name)

	require.Equal(t, []string{"GetUserByEmail", "CreateUser", "CreateOrganization", "GenerateAPIKey"}, f.records.Calls())
}

func TestProvisionCustomerID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req := validRequest()
	req.CustomerID = "cus_123"

	result, err := f.orch.Provision(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result.CustomerID)
	require.Equal(t, "cus_123", *result.CustomerID)

	org, err := f.manager.GetOrganization(ctx, result.OrganizationID, result.UserID)
	require.NoError(t, err)
	require.True(t, org.HasCustomerID())
	require.Equal(t, "cus_123", *org.CustomerID)
}

func TestProvisionReusesExistingUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.orch.Provision(ctx, validRequest())
	require.NoError(t, err)

	second, err := f.orch.Provision(ctx, Request{Email: "a@x.com", OrganizationName: "Acme2", APIKeyName: "k2"})
	require.NoError(t, err)
	require.Equal(t, first.UserID, second.UserID)
	require.NotEqual(t, first.OrganizationID, second.OrganizationID)
	require.NotEqual(t, first.APIKey.RawKey, second.APIKey.RawKey)

	orgs, err := f.manager.ListOrganizations(ctx, first.UserID)
	require.NoError(t, err)
	require.Len(t, orgs, 2)

	// an organization key is not an admin key
	_, err = f.manager.IsAdminAPIKey(ctx, second.APIKey.RawKey)
	require.ErrorIs(t, err, credentials.ErrKeyNotFound)

	t.Run("failure does not delete reused user", func(t *testing.T) {
		f.creds.generateAPIKey = func(uuid.UUID) error { return errInjected }
		defer func() { f.creds.generateAPIKey = nil }()

		_, err := f.orch.Provision(ctx, Request{Email: "a@x.com", OrganizationName: "Acme3", APIKeyName: "k3"})
		require.ErrorIs(t, err, ErrRolledBack)
		require.ErrorIs(t, err, errInjected)

		user, err := f.store.GetUser(ctx, first.UserID)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", user.Email)

		orgs, err := f.manager.ListOrganizations(ctx, first.UserID)
		require.NoError(t, err)
		require.Len(t, orgs, 2)

		_, err = f.manager.VerifyAPIKey(ctx, first.APIKey.RawKey)
		require.NoError(t, err)
	})
}

func TestProvisionKeyFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var orgID uuid.UUID
	f.creds.generateAPIKey = func(id uuid.UUID) error {
		orgID = id
		return errInjected
	}

	result, err := f.orch.Provision(ctx, validRequest())
	require.Nil(t, result)
	require.ErrorIs(t, err, ErrRolledBack)
	require.NotErrorIs(t, err, ErrCriticalInconsistency)
	require.ErrorIs(t, err, errInjected)

	perr := requireProvisionError(t, err)
	require.Equal(t, "operation failed but cleanup was successful", perr.Message)
	require.NoError(t, perr.CleanupErr)
	require.False(t, perr.Critical())

	users, err := f.store.GetUserByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, store.ErrUserNotFound)
	require.Nil(t, users)

	require.NotEqual(t, uuid.Nil, orgID)
	_, err = f.manager.ListAPIKeys(ctx, orgID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)

	calls := f.records.Calls()
	require.Equal(t, []string{"DeleteOrganization", "DeleteUser"}, calls[len(calls)-2:])
}

func TestProvisionKeyFailureRemovesOrganization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// an existing user survives the rollback, so the org lookup runs as its admin
	existing, err := f.store.CreateUser(ctx, "a@x.com", nil, false)
	require.NoError(t, err)

	var orgID uuid.UUID
	f.creds.generateAPIKey = func(id uuid.UUID) error {
		orgID = id
		return errInjected
	}

	_, err = f.orch.Provision(ctx, validRequest())
	require.ErrorIs(t, err, ErrRolledBack)
	require.NotEqual(t, uuid.Nil, orgID)

	_, err = f.manager.GetOrganization(ctx, orgID, existing.UserID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)

	orgs, err := f.manager.ListOrganizations(ctx, existing.UserID)
	require.NoError(t, err)
	require.Empty(t, orgs)

	user, err := f.store.GetUser(ctx, existing.UserID)
	require.NoError(t, err)
	require.Equal(t, existing.UserID, user.UserID)
}

func TestProvisionCustomerIDConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var orgID uuid.UUID
	f.records.setCustomerID = func(id uuid.UUID) error {
		orgID = id
		// another writer bound the billing identity first
		return f.store.SetCustomerID(ctx, id, "cus_other")
	}

	req := validRequest()
	req.CustomerID = "cus_123"

	_, err := f.orch.Provision(ctx, req)
	require.ErrorIs(t, err, ErrRolledBack)
	require.ErrorIs(t, err, store.ErrCustomerIDAlreadySet)

	_, err = f.store.GetUserByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = f.manager.ListAPIKeys(ctx, orgID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)

	require.NotContains(t, f.records.Calls(), "GenerateAPIKey")
}

func TestProvisionCleanupFailureIsCritical(t *testing.T) {
	ctx := context.Background()

	t.Run("organization delete fails", func(t *testing.T) {
		f := newFixture(t)
		f.creds.generateAPIKey = func(uuid.UUID) error { return errInjected }
		f.creds.deleteOrganization = func(uuid.UUID) error { return errors.New("store unavailable") }

		_, err := f.orch.Provision(ctx, validRequest())
		require.ErrorIs(t, err, ErrCriticalInconsistency)
		require.NotErrorIs(t, err, ErrRolledBack)
		require.ErrorIs(t, err, errInjected)

		perr := requireProvisionError(t, err)
		require.Equal(t, "critical: operation failed and cleanup was unsuccessful", perr.Message)
		require.True(t, perr.Critical())
		require.ErrorContains(t, perr.CleanupErr, "delete_organization: store unavailable")

		// the user delete is still attempted, and refused while the org remains
		require.ErrorIs(t, perr.CleanupErr, store.ErrUserHasOrganizations)
		calls := f.records.Calls()
		require.Equal(t, []string{"DeleteOrganization", "DeleteUser"}, calls[len(calls)-2:])
	})

	t.Run("user delete fails", func(t *testing.T) {
		f := newFixture(t)
		f.creds.generateAPIKey = func(uuid.UUID) error { return errInjected }
		f.records.deleteUser = func(uuid.UUID) error { return errors.New("store unavailable") }

		_, err := f.orch.Provision(ctx, validRequest())
		require.ErrorIs(t, err, ErrCriticalInconsistency)

		perr := requireProvisionError(t, err)
		require.ErrorContains(t, perr.CleanupErr, "delete_user: store unavailable")

		user, err := f.store.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)

		orgs, err := f.manager.ListOrganizations(ctx, user.UserID)
		require.NoError(t, err)
		require.Empty(t, orgs)
	})
}

func TestProvisionValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing email", req: Request{OrganizationName: "Acme", APIKeyName: "default"}},
		{name: "missing organization", req: Request{Email: "a@x.com", APIKeyName: "default"}},
		{name: "blank organization", req: Request{Email: "a@x.com", OrganizationName: "  ", APIKeyName: "default"}},
		{name: "missing key name", req: Request{Email: "a@x.com", OrganizationName: "Acme"}},
		{name: "malformed email", req: Request{Email: "not-an-email", OrganizationName: "Acme", APIKeyName: "default"}},
		{name: "display name", req: Request{Email: "A <a@x.com>", OrganizationName: "Acme", APIKeyName: "default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			result, err := f.orch.Provision(context.Background(), tt.req)
			require.Nil(t, result)
			require.ErrorIs(t, err, ErrValidation)
			require.NotErrorIs(t, err, ErrRolledBack)
			require.Empty(t, f.records.Calls())
		})
	}
}

func TestProvisionConcurrentCreateReusesUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	existing, err := f.store.CreateUser(ctx, "a@x.com", nil, false)
	require.NoError(t, err)

	// the first lookup misses, as if a concurrent call created the user just after it
	missed := false
	f.records.getUserByEmail = func(string) error {
		if !missed {
			missed = true
			return store.ErrUserNotFound
		}
		return nil
	}
	f.creds.generateAPIKey = func(uuid.UUID) error { return errInjected }

	_, err = f.orch.Provision(ctx, validRequest())
	require.ErrorIs(t, err, ErrRolledBack)

	require.Equal(t, []string{
		"GetUserByEmail", "CreateUser", "GetUserByEmail",
		"CreateOrganization", "GenerateAPIKey", "DeleteOrganization",
	}, f.records.Calls())

	user, err := f.store.GetUser(ctx, existing.UserID)
	require.NoError(t, err)
	require.Equal(t, existing.UserID, user.UserID)
}

func TestProvisionSameEmailInParallel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 8
	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.orch.Provision(ctx, validRequest())
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		require.Equal(t, results[0].UserID, results[i].UserID)
	}

	orgs, err := f.manager.ListOrganizations(ctx, results[0].UserID)
	require.NoError(t, err)
	require.Len(t, orgs, n)
}

func TestProvisionCancelledMidwayStillCleansUp(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.creds.createOrganization = func(context.Context, *models.Organization) error {
		cancel()
		return nil
	}

	_, err := f.orch.Provision(ctx, validRequest())
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ErrRolledBack)

	_, err = f.store.GetUserByEmail(context.Background(), "a@x.com")
	require.ErrorIs(t, err, store.ErrUserNotFound)
	require.NotContains(t, f.records.Calls(), "GenerateAPIKey")
}

func TestProvisionLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.records.getUserByEmail = func(string) error { return errInjected }

	_, err := f.orch.Provision(context.Background(), validRequest())
	require.ErrorIs(t, err, errInjected)
	require.ErrorIs(t, err, ErrRolledBack)
	require.Equal(t, []string{"GetUserByEmail"}, f.records.Calls())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	require.Equal(t, 30*time.Second, cfg.CleanupTimeout)

	_, err := NewOrchestrator(nil, nil, Config{CleanupTimeout: -time.Second})
	require.Error(t, err)
}
