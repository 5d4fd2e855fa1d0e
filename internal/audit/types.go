// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAuthorization  EventType = "authorization"
	EventTypePolicyChange   EventType = "policy_change"
	EventTypeRoleAssignment EventType = "role_assignment"
	EventTypeSecurity       EventType = "security"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeAuthorization, EventTypePolicyChange, EventTypeRoleAssignment, EventTypeSecurity:
		return true
	}
	return false
}

// Decision is the outcome recorded on authorization events.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// DecisionOf converts a boolean decision.
func DecisionOf(allowed bool) Decision {
	if allowed {
		return DecisionAllow
	}
	return DecisionDeny
}

// Event actions used by the authorization core.
const (
	ActionCheck            = "check"
	ActionStaleToken       = "stale_token"
	ActionAddPermission    = "add_permission"
	ActionRemovePermission = "remove_permission"
	ActionAssignRole       = "assign_role"
	ActionRevokeRole       = "revoke_role"
)

var (
	// ErrWriteFailed classifies failures persisting audit events.
	ErrWriteFailed = errors.New("audit write failed")

	// ErrNotFound is returned by Get when no event matches.
	ErrNotFound = errors.New("audit event not found")

	// ErrTenantRequired is returned for queries without a tenant.
	ErrTenantRequired = errors.New("tenant_id is required")
)

// Event is one immutable audit record.
type Event struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	EventType EventType `json:"event_type"`

	// EventAction names what happened, e.g. "check" or "assign_role".
	EventAction string `json:"event_action"`

	// Authorization events.
	Resource      string   `json:"resource,omitempty"`
	Action        string   `json:"action,omitempty"`
	Decision      Decision `json:"decision,omitempty"`
	PolicyVersion int64    `json:"policy_version,omitempty"`

	// Mutation events.
	TargetEntityType string          `json:"target_entity_type,omitempty"`
	TargetEntityID   string          `json:"target_entity_id,omitempty"`
	OldValue         json.RawMessage `json:"old_value,omitempty"`
	NewValue         json.RawMessage `json:"new_value,omitempty"`

	// Request context.
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter selects events for Query.
type Filter struct {
	// TenantID is mandatory.
	TenantID  string
	UserID    string
	EventType EventType
	Decision  Decision
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// Pagination bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Normalize applies pagination defaults and bounds.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize <= 0:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
}

// Offset returns the number of rows skipped for the current page.
func (f *Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Store persists audit events.
type Store interface {
	// SaveBatch persists events atomically where the backend supports it.
	SaveBatch(ctx context.Context, events []Event) error

	// Get returns one event of tenant, or ErrNotFound.
	Get(ctx context.Context, tenantID, id string) (*Event, error)

	// Query returns one page of matching events, newest first, and the total match count.
	Query(ctx context.Context, filter Filter) ([]Event, int64, error)

	// DeleteBefore removes events created before t.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}

// NewEventID generates a unique event ID.
func NewEventID() string {
	return uuid.NewString()
}

// MarshalValue encodes a before/after state for OldValue and NewValue.
// Encoding failures yield nil rather than failing the mutation.
func MarshalValue(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
