package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeys/internal/credentials"
	"github.com/wolfeidau/orgkeys/internal/provision"
	"github.com/wolfeidau/orgkeys/internal/store"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Error        string `json:"error,omitempty"`
	CleanupError string `json:"cleanup_error,omitempty"`
}

type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successResponse{Status: "success", Message: message, Data: data})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func errRequired(name string) error {
	return fmt.Errorf("%w: %s is required", errBadRequest, name)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return parseUUID(name, r.PathValue(name))
}

func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	return parseUUID(name, r.URL.Query().Get(name))
}

func parseUUID(name, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, errRequired(name)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", errBadRequest, name)
	}
	return id, nil
}

// writeError maps err to a status code and a body that doesn't leak internals.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var perr *provision.Error
	if errors.As(err, &perr) {
		resp := errorResponse{Status: "error", Message: perr.Message, Error: perr.Err.Error()}
		if perr.CleanupErr != nil {
			resp.CleanupError = perr.CleanupErr.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
		writeJSON(w, status, errorResponse{Status: "error", Message: message})
		return
	}

	logger.Debug().Err(err).Int("status", status).Msg("Request rejected")

	// auth failures carry no detail
	resp := errorResponse{Status: "error", Message: message}
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, provision.ErrValidation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid request"

	case errors.Is(err, credentials.ErrKeyNotFound), errors.Is(err, credentials.ErrKeyInvalid):
		return http.StatusUnauthorized, "unauthorized"

	case errors.Is(err, store.ErrNotOrganizationAdmin):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, store.ErrOrganizationNotFound):
		return http.StatusNotFound, "organization not found"
	case errors.Is(err, store.ErrAPIKeyNotFound):
		return http.StatusNotFound, "api key not found"
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, store.ErrMemberNotFound):
		return http.StatusNotFound, "member not found"

	case errors.Is(err, store.ErrUserAlreadyExists),
		errors.Is(err, store.ErrCustomerIDAlreadySet),
		errors.Is(err, store.ErrAPIKeyAlreadyExists),
		errors.Is(err, store.ErrMemberAlreadyExists),
		errors.Is(err, store.ErrCannotRemoveAdmin):
		return http.StatusConflict, "conflict"

	default:
		return http.StatusInternalServerError, "internal error"
	}
}
