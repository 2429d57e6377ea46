package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeys/internal/auth"
	httpmiddleware "github.com/wolfeidau/orgkeys/internal/http"
	"github.com/wolfeidau/orgkeys/internal/logger"
	"github.com/wolfeidau/orgkeys/internal/models"
	"github.com/wolfeidau/orgkeys/internal/provision"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Provisioner runs tenant provisioning. provision.Orchestrator satisfies it.
type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) (*provision.Result, error)
}

// Credentials is the credential and organization surface the API exposes.
// credentials.Manager satisfies it.
type Credentials interface {
	auth.AdminKeyVerifier

	GenerateAPIKey(ctx context.Context, orgID uuid.UUID, name string) (*models.APIKeyFull, error)
	VerifyAPIKey(ctx context.Context, rawKey string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, orgID uuid.UUID) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, keyID uuid.UUID) error

	GetOrganization(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error)
	DeleteOrganization(ctx context.Context, orgID, adminID uuid.UUID) error
	AddMember(ctx context.Context, orgID, adminID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, orgID, adminID, userID uuid.UUID) error
}

// Config holds HTTP server options.
type Config struct {
	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string
	// Tracing wraps the handler with OpenTelemetry instrumentation.
	Tracing bool
}

// Server serves the JSON admin and verification API.
type Server struct {
	provisioner Provisioner
	creds       Credentials
	cfg         Config
}

// NewServer creates a new server over the given services.
func NewServer(provisioner Provisioner, creds Credentials, cfg Config) *Server {
	return &Server{
		provisioner: provisioner,
		creds:       creds,
		cfg:         cfg,
	}
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /v1/api-keys/verify", s.verifyAPIKey)

	admin := http.NewServeMux()
	admin.HandleFunc("POST /admin/setup-organization", s.setupOrganization)
	admin.HandleFunc("GET /admin/organizations/{org_id}", s.getOrganization)
	admin.HandleFunc("DELETE /admin/organizations/{org_id}", s.deleteOrganization)
	admin.HandleFunc("POST /admin/organizations/{org_id}/api-keys", s.createAPIKey)
	admin.HandleFunc("GET /admin/organizations/{org_id}/api-keys", s.listAPIKeys)
	admin.HandleFunc("POST /admin/organizations/{org_id}/members", s.addMember)
	admin.HandleFunc("DELETE /admin/organizations/{org_id}/members/{user_id}", s.removeMember)
	admin.HandleFunc("DELETE /admin/api-keys/{key_id}", s.deleteAPIKey)

	mux.Handle("/admin/", auth.AdminKeyMiddleware(s.creds)(admin))

	var handler http.Handler = httpmiddleware.ClientIPMiddleware()(mux)
	handler = logger.HTTPRequests(log)(handler)
	handler = withCORS(s.cfg.CORSOrigins, handler)

	if s.cfg.Tracing {
		handler = otelhttp.NewHandler(handler, "orgkeys")
	}

	return handler
}

// withCORS adds CORS support for browser clients of the JSON API.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", auth.APIKeyHeader, "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	})
	return middleware.Handler(h)
}
