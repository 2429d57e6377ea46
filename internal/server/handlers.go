package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeys/internal/auth"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/provision"
)

type apiKeyResponse struct {
	ID             string `json:"id"`
	RawKey         string `json:"raw_key,omitempty"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
	CreatedAt      string `json:"created_at,omitempty"`
}

type setupOrganizationResponse struct {
	APIKey         apiKeyResponse `json:"api_key"`
	OrganizationID string         `json:"organization_id"`
	UserID         string         `json:"user_id"`
	CustomerID     *string        `json:"customer_id"`
}

type organizationResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	AdminID    string   `json:"admin_id"`
	Members    []string `json:"members"`
	CustomerID *string  `json:"customer_id"`
	CreatedAt  string   `json:"created_at"`
}

func newAPIKeyResponse(key *models.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:             key.KeyID.String(),
		Name:           key.Name,
		OrganizationID: key.OrgID.String(),
		CreatedAt:      key.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newAPIKeyFullResponse(key *models.APIKeyFull) apiKeyResponse {
	return apiKeyResponse{
		ID:             key.KeyID.String(),
		RawKey:         key.RawKey,
		Name:           key.Name,
		OrganizationID: key.OrgID.String(),
	}
}

func newOrganizationResponse(org *models.Organization) organizationResponse {
	members := make([]string, 0, len(org.Members))
	for _, m := range org.Members {
		members = append(members, m.String())
	}
	return organizationResponse{
		ID:         org.OrgID.String(),
		Name:       org.Name,
		AdminID:    org.AdminUserID.String(),
		Members:    members,
		CustomerID: org.CustomerID,
		CreatedAt:  org.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// setupOrganization provisions a user, organization and first API key.
func (s *Server) setupOrganization(w http.ResponseWriter, r *http.Request) {
	var req provision.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.provisioner.Provision(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "organization provisioned", setupOrganizationResponse{
		APIKey:         newAPIKeyFullResponse(&result.APIKey),
		OrganizationID: result.OrganizationID.String(),
		UserID:         result.UserID.String(),
		CustomerID:     result.CustomerID,
	})
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "org_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := queryUUID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	org, err := s.creds.GetOrganization(r.Context(), orgID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", newOrganizationResponse(org))
}

func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "org_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	adminID, err := queryUUID(r, "admin_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.creds.DeleteOrganization(r.Context(), orgID, adminID); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "organization deleted", nil)
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

func (s *Server) createAPIKey(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "org_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createAPIKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, errRequired("name"))
		return
	}

	key, err := s.creds.GenerateAPIKey(r.Context(), orgID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "api key created", newAPIKeyFullResponse(key))
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "org_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	keys, err := s.creds.ListAPIKeys(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]apiKeyResponse, 0, len(keys))
	for _, key := range keys {
		resp = append(resp, newAPIKeyResponse(key))
	}

	writeSuccess(w, http.StatusOK, "", resp)
}

func (s *Server) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathUUID(r, "key_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.creds.DeleteAPIKey(r.Context(), keyID); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "api key deleted", nil)
}

type addMemberRequest struct {
	AdminID string `json:"admin_id"`
	UserID  string `json:"user_id"`
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "org_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	adminID, err := parseUUID("admin_id", req.AdminID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := parseUUID("user_id", req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.creds.AddMember(r.Context(), orgID, adminID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "member added", nil)
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "org_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathUUID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	adminID, err := queryUUID(r, "admin_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.creds.RemoveMember(r.Context(), orgID, adminID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "member removed", nil)
}

type verifyResponse struct {
	Valid          bool   `json:"valid"`
	OrganizationID string `json:"organization_id"`
	KeyID          string `json:"key_id"`
}

// verifyAPIKey checks an organization key presented in the X-API-Key header.
func (s *Server) verifyAPIKey(w http.ResponseWriter, r *http.Request) {
	rawKey := r.Header.Get(auth.APIKeyHeader)
	if rawKey == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Status: "error", Message: "unauthorized"})
		return
	}

	key, err := s.creds.VerifyAPIKey(r.Context(), rawKey)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Debug().
		Str("key_id", key.KeyID.String()).
		Str("org_id", key.OrgID.String()).
		Msg("Verified api key")

	writeJSON(w, http.StatusOK, verifyResponse{
		Valid:          true,
		OrganizationID: key.OrgID.String(),
		KeyID:          key.KeyID.String(),
	})
}
