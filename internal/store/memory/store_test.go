package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeys/internal/store"
)

func TestNewStore(t *testing.T) {
	st := NewStore()
	require.NotNil(t, st)
}

func TestMemoryStore_Users(t *testing.T) {
	t.Run("create and get by email", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		user, err := st.CreateUser(ctx, "a@x.com", nil, false)
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, user.UserID)
		require.Nil(t, user.PasswordHash)
		require.False(t, user.HasPassword())

		retrieved, err := st.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, user.UserID, retrieved.UserID)

		byID, err := st.GetUser(ctx, user.UserID)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", byID.Email)
	})

	t.Run("duplicate email returns error", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		_, err := st.CreateUser(ctx, "a@x.com", nil, false)
		require.NoError(t, err)

		_, err = st.CreateUser(ctx, "a@x.com", nil, false)
		require.Equal(t, store.ErrUserAlreadyExists, err)
	})

	t.Run("email lookup is case sensitive", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		_, err := st.CreateUser(ctx, "a@x.com", nil, false)
		require.NoError(t, err)

		_, err = st.GetUserByEmail(ctx, "A@x.com")
		require.Equal(t, store.ErrUserNotFound, err)
	})

	t.Run("password hash is copied", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		hash := "hash"
		user, err := st.CreateUser(ctx, "a@x.com", &hash, true)
		require.NoError(t, err)
		require.True(t, user.IsAdmin)

		*user.PasswordHash = "modified"

		retrieved, err := st.GetUser(ctx, user.UserID)
		require.NoError(t, err)
		require.Equal(t, "hash", *retrieved.PasswordHash)
	})

	t.Run("delete user frees email", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		user, err := st.CreateUser(ctx, "a@x.com", nil, false)
		require.NoError(t, err)

		require.NoError(t, st.DeleteUser(ctx, user.UserID))

		_, err = st.GetUserByEmail(ctx, "a@x.com")
		require.Equal(t, store.ErrUserNotFound, err)

		err = st.DeleteUser(ctx, user.UserID)
		require.Equal(t, store.ErrUserNotFound, err)

		_, err = st.CreateUser(ctx, "a@x.com", nil, false)
		require.NoError(t, err)
	})

	t.Run("delete admin of organization returns error", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		user, err := st.CreateUser(ctx, "a@x.com", nil, false)
		require.NoError(t, err)
		org, err := st.CreateOrganization(ctx, "Acme", user.UserID)
		require.NoError(t, err)

		err = st.DeleteUser(ctx, user.UserID)
		require.Equal(t, store.ErrUserHasOrganizations, err)

		require.NoError(t, st.DeleteOrganization(ctx, org.OrgID, user.UserID))
		require.NoError(t, st.DeleteUser(ctx, user.UserID))
	})

	t.Run("delete member removes membership", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		admin, err := st.CreateUser(ctx, "admin@x.com", nil, false)
		require.NoError(t, err)
		member, err := st.CreateUser(ctx, "member@x.com", nil, false)
		require.NoError(t, err)
		org, err := st.CreateOrganization(ctx, "Acme", admin.UserID)
		require.NoError(t, err)
		require.NoError(t, st.AddMember(ctx, org.OrgID, member.UserID))

		require.NoError(t, st.DeleteUser(ctx, member.UserID))

		retrieved, err := st.GetOrganization(ctx, org.OrgID, admin.UserID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{admin.UserID}, retrieved.Members)
	})
}

func TestMemoryStore_Organizations(t *testing.T) {
	setup := func(t *testing.T) (*Store, uuid.UUID) {
		st := NewStore()
		user, err := st.CreateUser(context.Background(), "admin@x.com", nil, false)
		require.NoError(t, err)
		return st, user.UserID
	}

	t.Run("create requires existing admin", func(t *testing.T) {
		st := NewStore()
		_, err := st.CreateOrganization(context.Background(), "Acme", uuid.New())
		require.Equal(t, store.ErrUserNotFound, err)
	})

	t.Run("admin is first member", func(t *testing.T) {
		st, adminID := setup(t)
		ctx := context.Background()

		org, err := st.CreateOrganization(ctx, "Acme", adminID)
		require.NoError(t, err)
		require.Equal(t, adminID, org.AdminUserID)
		require.Equal(t, []uuid.UUID{adminID}, org.Members)
		require.Nil(t, org.CustomerID)
	})

	t.Run("get is filtered to admin or member", func(t *testing.T) {
		st, adminID := setup(t)
		ctx := context.Background()

		org, err := st.CreateOrganization(ctx, "Acme", adminID)
		require.NoError(t, err)

		other, err := st.CreateUser(ctx, "other@x.com", nil, false)
		require.NoError(t, err)

		_, err = st.GetOrganization(ctx, org.OrgID, other.UserID)
		require.Equal(t, store.ErrOrganizationNotFound, err)

		require.NoError(t, st.AddMember(ctx, org.OrgID, other.UserID))

		retrieved, err := st.GetOrganization(ctx, org.OrgID, other.UserID)
		require.NoError(t, err)
		require.Equal(t, "Acme", retrieved.Name)

		orgs, err := st.ListOrganizations(ctx, other.UserID)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
	})

	t.Run("customer id is write once", func(t *testing.T) {
		st, adminID := setup(t)
		ctx := context.Background()

		org, err := st.CreateOrganization(ctx, "Acme", adminID)
		require.NoError(t, err)

		require.NoError(t, st.SetCustomerID(ctx, org.OrgID, "cus_1"))

		err = st.SetCustomerID(ctx, org.OrgID, "cus_2")
		require.Equal(t, store.ErrCustomerIDAlreadySet, err)

		retrieved, err := st.GetOrganization(ctx, org.OrgID, adminID)
		require.NoError(t, err)
		require.Equal(t, "cus_1", *retrieved.CustomerID)

		err = st.SetCustomerID(ctx, uuid.New(), "cus_3")
		require.Equal(t, store.ErrOrganizationNotFound, err)
	})

	t.Run("delete requires recorded admin", func(t *testing.T) {
		st, adminID := setup(t)
		ctx := context.Background()

		org, err := st.CreateOrganization(ctx, "Acme", adminID)
		require.NoError(t, err)

		member, err := st.CreateUser(ctx, "member@x.com", nil, false)
		require.NoError(t, err)
		require.NoError(t, st.AddMember(ctx, org.OrgID, member.UserID))

		err = st.DeleteOrganization(ctx, org.OrgID, member.UserID)
		require.Equal(t, store.ErrNotOrganizationAdmin, err)

		require.NoError(t, st.DeleteOrganization(ctx, org.OrgID, adminID))

		_, err = st.GetOrganization(ctx, org.OrgID, adminID)
		require.Equal(t, store.ErrOrganizationNotFound, err)

		err = st.DeleteOrganization(ctx, org.OrgID, adminID)
		require.Equal(t, store.ErrOrganizationNotFound, err)
	})

	t.Run("delete cascades to api keys", func(t *testing.T) {
		st, adminID := setup(t)
		ctx := context.Background()

		org, err := st.CreateOrganization(ctx, "Acme", adminID)
		require.NoError(t, err)

		_, err = st.SetAPIKey(ctx, org.OrgID, "default", "digest-1")
		require.NoError(t, err)

		require.NoError(t, st.DeleteOrganization(ctx, org.OrgID, adminID))

		_, err = st.FindAPIKeyByHash(ctx, "digest-1")
		require.Equal(t, store.ErrAPIKeyNotFound, err)
	})

	t.Run("membership changes", func(t *testing.T) {
		st, adminID := setup(t)
		ctx := context.Background()

		org, err := st.CreateOrganization(ctx, "Acme", adminID)
		require.NoError(t, err)

		member, err := st.CreateUser(ctx, "member@x.com", nil, false)
		require.NoError(t, err)

		require.NoError(t, st.AddMember(ctx, org.OrgID, member.UserID))
		require.Equal(t, store.ErrMemberAlreadyExists, st.AddMember(ctx, org.OrgID, member.UserID))
		require.Equal(t, store.ErrMemberAlreadyExists, st.AddMember(ctx, org.OrgID, adminID))
		require.Equal(t, store.ErrUserNotFound, st.AddMember(ctx, org.OrgID, uuid.New()))

		require.Equal(t, store.ErrCannotRemoveAdmin, st.RemoveMember(ctx, org.OrgID, adminID))
		require.NoError(t, st.RemoveMember(ctx, org.OrgID, member.UserID))
		require.Equal(t, store.ErrMemberNotFound, st.RemoveMember(ctx, org.OrgID, member.UserID))
	})

	t.Run("returned organization is a copy", func(t *testing.T) {
		st, adminID := setup(t)
		ctx := context.Background()

		org, err := st.CreateOrganization(ctx, "Acme", adminID)
		require.NoError(t, err)

		org.Members[0] = uuid.New()

		retrieved, err := st.GetOrganization(ctx, org.OrgID, adminID)
		require.NoError(t, err)
		require.Equal(t, adminID, retrieved.Members[0])
	})
}

func TestMemoryStore_APIKeys(t *testing.T) {
	t.Run("set requires existing organization", func(t *testing.T) {
		st := NewStore()
		_, err := st.SetAPIKey(context.Background(), uuid.New(), "default", "digest")
		require.Equal(t, store.ErrOrganizationNotFound, err)
	})

	t.Run("set find list delete", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		user, err := st.CreateUser(ctx, "a@x.com", nil, false)
		require.NoError(t, err)
		org, err := st.CreateOrganization(ctx, "Acme", user.UserID)
		require.NoError(t, err)

		first, err := st.SetAPIKey(ctx, org.OrgID, "first", "digest-1")
		require.NoError(t, err)
		second, err := st.SetAPIKey(ctx, org.OrgID, "second", "digest-2")
		require.NoError(t, err)

		_, err = st.SetAPIKey(ctx, org.OrgID, "dup", "digest-1")
		require.Equal(t, store.ErrAPIKeyAlreadyExists, err)

		found, err := st.FindAPIKeyByHash(ctx, "digest-2")
		require.NoError(t, err)
		require.Equal(t, second.KeyID, found.KeyID)
		require.Equal(t, org.OrgID, found.OrgID)

		keys, err := st.ListAPIKeys(ctx, org.OrgID)
		require.NoError(t, err)
		require.Len(t, keys, 2)
		require.Equal(t, first.KeyID, keys[0].KeyID)

		_, err = st.ListAPIKeys(ctx, uuid.Must(uuid.NewV7()))
		require.Equal(t, store.ErrOrganizationNotFound, err)

		require.NoError(t, st.DeleteAPIKey(ctx, first.KeyID))
		_, err = st.FindAPIKeyByHash(ctx, "digest-1")
		require.Equal(t, store.ErrAPIKeyNotFound, err)
		require.Equal(t, store.ErrAPIKeyNotFound, st.DeleteAPIKey(ctx, first.KeyID))
	})

	t.Run("admin keys are a separate collection", func(t *testing.T) {
		st := NewStore()
		ctx := context.Background()

		admin, err := st.CreateAdminAPIKey(ctx, "ops", "admin-digest")
		require.NoError(t, err)

		_, err = st.CreateAdminAPIKey(ctx, "ops2", "admin-digest")
		require.Equal(t, store.ErrAPIKeyAlreadyExists, err)

		_, err = st.FindAPIKeyByHash(ctx, "admin-digest")
		require.Equal(t, store.ErrAPIKeyNotFound, err)

		found, err := st.FindAdminAPIKeyByHash(ctx, "admin-digest")
		require.NoError(t, err)
		require.Equal(t, admin.KeyID, found.KeyID)

		require.NoError(t, st.DeleteAdminAPIKey(ctx, admin.KeyID))
		_, err = st.FindAdminAPIKeyByHash(ctx, "admin-digest")
		require.Equal(t, store.ErrAPIKeyNotFound, err)
	})
}
