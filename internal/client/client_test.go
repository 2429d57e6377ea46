package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeys/internal/provision"
)

func TestSetupOrganization(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/setup-organization", r.URL.Path)
		require.Equal(t, "ak_admin", r.Header.Get("X-API-Key"))

		var req provision.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		if req.Email == "broken@x.com" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","message":"critical: operation failed and cleanup was unsuccessful","error":"boom","cleanup_error":"delete_user: gone"}`))
			return
		}

		_, _ = w.Write([]byte(`{"status":"success","data":{"api_key":{"id":"k1","raw_key":"sk_abc","name":"default","organization_id":"o1"},"organization_id":"o1","user_id":"u1","customer_id":null}}`))
	}))
	defer ts.Close()

	c := New(Config{ServerURL: ts.URL + "/"})

	result, err := c.SetupOrganization(context.Background(), "ak_admin", provision.Request{
		Email:            "a@x.com",
		OrganizationName: "Acme",
		APIKeyName:       "default",
	})
	require.NoError(t, err)
	require.Equal(t, "sk_abc", result.APIKey.RawKey)
	require.Equal(t, "o1", result.OrganizationID)
	require.Nil(t, result.CustomerID)

	_, err = c.SetupOrganization(context.Background(), "ak_admin", provision.Request{Email: "broken@x.com"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.True(t, apiErr.Critical())
	require.Contains(t, apiErr.Error(), "cleanup: delete_user: gone")
}

func TestVerifyAPIKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-API-Key") != "sk_good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","message":"unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"valid":true,"organization_id":"o1","key_id":"k1"}`))
	}))
	defer ts.Close()

	c := New(Config{ServerURL: ts.URL})

	result, err := c.VerifyAPIKey(context.Background(), "sk_good")
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "k1", result.KeyID)

	_, err = c.VerifyAPIKey(context.Background(), "sk_bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.False(t, apiErr.Critical())
}
