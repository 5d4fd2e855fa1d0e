// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tenantguard/internal/validation"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeJWT uses JWT Bearer tokens
	AuthModeJWT AuthMode = "jwt"

	// AuthModeHeader trusts identity headers set by an upstream proxy
	AuthModeHeader AuthMode = "header"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "jwt", "":
		return AuthModeJWT, nil
	case "header":
		return AuthModeHeader, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// String returns the string representation of AuthMode.
func (m AuthMode) String() string {
	return string(m)
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingTenant indicates the credentials carry no tenant.
	ErrMissingTenant = errors.New("credentials carry no tenant")

	// ErrInvalidTenant indicates the credentials carry a malformed tenant ID.
	ErrInvalidTenant = errors.New("invalid tenant id")
)

// checkTenant rejects tenant IDs that could collide inside decision cache
// keys, such as IDs containing ':'.
func checkTenant(tenant string) error {
	if tenant == "" {
		return ErrMissingTenant
	}
	if !validation.IsTenantID(tenant) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidCredentials, ErrInvalidTenant, tenant)
	}
	return nil
}

// Identity is an authenticated caller.
type Identity struct {
	// Subject is the caller's user ID.
	Subject string `json:"subject"`

	// Tenant scopes every decision made for this caller.
	Tenant string `json:"tenant"`

	// TenantVersion and UserVersion are the authorization versions embedded
	// at token issue time. Zero means the token carries none.
	TenantVersion int64 `json:"tenant_v,omitempty"`
	UserVersion   int64 `json:"user_v,omitempty"`

	// Method indicates how the identity was established.
	Method AuthMode `json:"method"`
}

// HasVersions reports whether the identity carries authorization versions.
func (id *Identity) HasVersions() bool {
	return id.TenantVersion != 0 || id.UserVersion != 0
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}
