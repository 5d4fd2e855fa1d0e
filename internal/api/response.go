// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"time"

	"github.com/tomtom215/tenantguard/internal/audit"
)

// APIResponse is the envelope for admin responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every APIResponse.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AuthorizeRequest is the body of POST /api/v1/authorize.
type AuthorizeRequest struct {
	Resource string `json:"resource" validate:"required,resource"`
	Action   string `json:"action" validate:"required,authzaction"`
}

// AuthorizeResponse is the answer to an authorize request.
type AuthorizeResponse struct {
	Allowed bool `json:"allowed"`
}

// PermissionRequest grants or revokes Action on Resource for a role or user.
type PermissionRequest struct {
	Subject  string `json:"subject" validate:"required,max=256"`
	Resource string `json:"resource" validate:"required,resource"`
	Action   string `json:"action" validate:"required,authzaction"`
	Effect   string `json:"effect,omitempty" validate:"omitempty,oneof=allow deny"`
}

// RoleRequest assigns or revokes Role for Subject.
type RoleRequest struct {
	Subject string `json:"subject" validate:"required,max=256"`
	Role    string `json:"role" validate:"required,max=256,nefield=Subject"`
}

// SubjectRoles lists the effective roles of one subject.
type SubjectRoles struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

// AuditPage is one page of audit events.
type AuditPage struct {
	Events   []audit.Event `json:"events"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// auditQuery holds the validated audit query parameters.
type auditQuery struct {
	UserID    string `json:"user_id" validate:"omitempty,max=256"`
	EventType string `json:"event_type" validate:"omitempty,oneof=authorization policy_change role_assignment security"`
	Decision  string `json:"decision" validate:"omitempty,oneof=allow deny"`
	From      string `json:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To        string `json:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Page      int    `json:"page" validate:"gte=0"`
	PageSize  int    `json:"page_size" validate:"gte=0"`
}

// HealthStatus is returned by the readiness probe.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Uptime float64           `json:"uptime_seconds"`
}
