package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeys/internal/auth"
	"github.com/wolfeidau/orgkeys/internal/provision"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
		Debug:     false,
	}
}

// Client calls the orgkeys JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	debug      bool
}

// New creates a client. Requests carry trace context so server spans join the caller's trace.
func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		debug: cfg.Debug,
	}
}

// APIError is a non 2xx response from the server.
type APIError struct {
	StatusCode   int
	Message      string
	Detail       string
	CleanupError string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.CleanupError != "" {
		msg += " (cleanup: " + e.CleanupError + ")"
	}
	return msg
}

// Critical reports whether the server could not undo a failed provisioning.
func (e *APIError) Critical() bool {
	return e.CleanupError != ""
}

// APIKey is an issued key. RawKey is only present on the creation response.
type APIKey struct {
	ID             string `json:"id"`
	RawKey         string `json:"raw_key"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
}

// SetupResult is the data of a successful setup-organization call.
type SetupResult struct {
	APIKey         APIKey  `json:"api_key"`
	OrganizationID string  `json:"organization_id"`
	UserID         string  `json:"user_id"`
	CustomerID     *string `json:"customer_id"`
}

// VerifyResult is the response of a successful key verification.
type VerifyResult struct {
	Valid          bool   `json:"valid"`
	OrganizationID string `json:"organization_id"`
	KeyID          string `json:"key_id"`
}

// SetupOrganization provisions a tenant using an admin key.
func (c *Client) SetupOrganization(ctx context.Context, adminKey string, req provision.Request) (*SetupResult, error) {
	var envelope struct {
		Data SetupResult `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/setup-organization", adminKey, req, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// VerifyAPIKey checks an organization key.
func (c *Client) VerifyAPIKey(ctx context.Context, rawKey string) (*VerifyResult, error) {
	var result VerifyResult
	if err := c.do(ctx, http.MethodPost, "/v1/api-keys/verify", rawKey, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(auth.APIKeyHeader, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.debug {
		log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api request")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Message      string `json:"message"`
			Error        string `json:"error"`
			CleanupError string `json:"cleanup_error"`
		}
		// a non JSON body still produces an APIError with the status code
		_ = json.NewDecoder(resp.Body).Decode(&errBody)

		return &APIError{
			StatusCode:   resp.StatusCode,
			Message:      errBody.Message,
			Detail:       errBody.Error,
			CleanupError: errBody.CleanupError,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
