package provision

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/models"
)

// Request describes a tenant to provision.
type Request struct {
	Email            string `json:"email" yaml:"email"`
	OrganizationName string `json:"organization_name" yaml:"organization_name"`
	APIKeyName       string `json:"api_key_name" yaml:"api_key_name"`
	// CustomerID is the optional external billing identity, empty means none.
	CustomerID string `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
}

// Validate checks required fields and the email syntax.
// Emails are matched exactly as given, so surrounding whitespace or a display name is rejected.
func (r Request) Validate() error {
	switch {
	case r.Email == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case strings.TrimSpace(r.OrganizationName) == "":
		return fmt.Errorf("%w: organization_name is required", ErrValidation)
	case strings.TrimSpace(r.APIKeyName) == "":
		return fmt.Errorf("%w: api_key_name is required", ErrValidation)
	}

	addr, err := mail.ParseAddress(r.Email)
	if err != nil || addr.Address != r.Email {
		return fmt.Errorf("%w: email %q is not a valid address", ErrValidation, r.Email)
	}

	return nil
}

// Result is returned when every provisioning step completed.
// APIKey.RawKey is the only copy of the key, it can't be recovered later.
type Result struct {
	APIKey         models.APIKeyFull
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	CustomerID     *string
}
