package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Organization represents an organization (tenant) in the system.
// Each organization has exactly one admin user and any number of members.
type Organization struct {
	OrgID       uuid.UUID // UUIDv7
	Name        string
	AdminUserID uuid.UUID   // UUIDv7, FK to users
	Members     []uuid.UUID // includes the admin

	// External billing identity, write-once
	CustomerID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin returns true if the user is the recorded admin of the organization.
func (o *Organization) IsAdmin(userID uuid.UUID) bool {
	return o.AdminUserID == userID
}

// HasMember returns true if the user is the admin or a member of the organization.
func (o *Organization) HasMember(userID uuid.UUID) bool {
	return o.IsAdmin(userID) || slices.Contains(o.Members, userID)
}

// HasCustomerID returns true once a billing identity has been bound.
func (o *Organization) HasCustomerID() bool {
	return o.CustomerID != nil && *o.CustomerID != ""
}
