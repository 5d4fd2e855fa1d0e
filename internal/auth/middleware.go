// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantguard/internal/config"
	"github.com/tomtom215/tenantguard/internal/logging"
)

// Header names used by AuthModeHeader.
const (
	HeaderSubjectID = "X-Subject-ID"
	HeaderTenantID  = "X-Tenant-ID"
)

// Authenticator extracts an identity from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
	Name() string
}

// JWTAuthenticator reads "Authorization: Bearer <token>".
type JWTAuthenticator struct {
	manager *JWTManager
}

// NewJWTAuthenticator creates a bearer token authenticator.
func NewJWTAuthenticator(manager *JWTManager) *JWTAuthenticator {
	return &JWTAuthenticator{manager: manager}
}

func (a *JWTAuthenticator) Name() string { return string(AuthModeJWT) }

// Authenticate validates the bearer token.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrNoCredentials
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, fmt.Errorf("%w: expected bearer token", ErrInvalidCredentials)
	}
	claims, err := a.manager.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return IdentityFromClaims(claims)
}

// HeaderAuthenticator trusts identity headers set by an upstream proxy.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Name() string { return string(AuthModeHeader) }

// Authenticate reads X-Subject-ID and X-Tenant-ID.
func (HeaderAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	subject := strings.TrimSpace(r.Header.Get(HeaderSubjectID))
	tenant := strings.TrimSpace(r.Header.Get(HeaderTenantID))
	if subject == "" && tenant == "" {
		return nil, ErrNoCredentials
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidCredentials, HeaderSubjectID)
	}
	if err := checkTenant(tenant); err != nil {
		return nil, err
	}
	return &Identity{Subject: subject, Tenant: tenant, Method: AuthModeHeader}, nil
}

// NewAuthenticator builds the authenticator selected by cfg.
func NewAuthenticator(cfg config.AuthConfig) (Authenticator, error) {
	mode, err := ParseAuthMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	switch mode {
	case AuthModeHeader:
		return HeaderAuthenticator{}, nil
	default:
		manager, err := NewJWTManager(cfg.JWTSecret, 0)
		if err != nil {
			return nil, err
		}
		return NewJWTAuthenticator(manager), nil
	}
}

// Middleware authenticates every request and stores the identity in its
// context. Requests without a valid identity get 401.
func Middleware(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticator.Authenticate(r)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Str("method", authenticator.Name()).
					Msg("Authentication failed")
				writeUnauthorized(w)
				return
			}

			ctx := NewContext(r.Context(), id)
			ctx = logging.ContextWithPrincipal(ctx, id.Tenant, id.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
