package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeys/internal/credentials"
	"github.com/wolfeidau/orgkeys/internal/models"
)

// APIKeyHeader carries raw API keys on every authenticated request.
const APIKeyHeader = "X-API-Key"

// AdminKeyVerifier resolves raw admin keys. credentials.Manager satisfies it.
type AdminKeyVerifier interface {
	IsAdminAPIKey(ctx context.Context, rawKey string) (*models.AdminAPIKey, error)
}

type contextKey int

const (
	adminKeyContextKey contextKey = iota
)

// WithAdminKey returns a context carrying the authenticated admin key.
func WithAdminKey(ctx context.Context, key *models.AdminAPIKey) context.Context {
	return context.WithValue(ctx, adminKeyContextKey, key)
}

// AdminKeyFromContext extracts the authenticated admin key from the request context.
// Returns nil if no admin key is present (unauthenticated request).
func AdminKeyFromContext(ctx context.Context) *models.AdminAPIKey {
	key, _ := ctx.Value(adminKeyContextKey).(*models.AdminAPIKey)
	return key
}

// AdminKeyMiddleware rejects requests without a valid admin key in the X-API-Key header.
// Every rejection gets the same body so callers can't tell a missing key from a wrong one.
func AdminKeyMiddleware(verifier AdminKeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := zerolog.Ctx(ctx)

			rawKey := r.Header.Get(APIKeyHeader)
			if rawKey == "" {
				logger.Debug().Msg("Admin auth: missing api key")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			key, err := verifier.IsAdminAPIKey(ctx, rawKey)
			if err != nil {
				if errors.Is(err, credentials.ErrKeyNotFound) || errors.Is(err, credentials.ErrKeyInvalid) {
					logger.Debug().Err(err).Msg("Admin auth: key rejected")
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				logger.Error().Err(err).Msg("Admin auth: key lookup failed")
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("admin_key_id", key.KeyID.String())
			})

			next.ServeHTTP(w, r.WithContext(WithAdminKey(ctx, key)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}
