// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantguard/internal/auth"
)

// Action names derived from HTTP methods.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// ResourceFunc derives the protected resource from a request.
type ResourceFunc func(r *http.Request) string

// ActionFunc derives the requested action from a request.
type ActionFunc func(r *http.Request) string

// MethodAction maps safe methods to read, DELETE to delete and everything
// else to write.
func MethodAction(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionWrite
	}
}

// RoutePattern uses the matched chi route pattern as the resource, so
// /api/v1/admin/roles/{subject} is one resource regardless of subject.
// Outside a chi router it falls back to the request path.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// Middleware guards next with the gate. The caller's identity must already be
// in the request context. Denied requests receive a bare 403 with no reason.
func (g *Gate) Middleware(resourceFn ResourceFunc, actionFn ActionFunc) func(http.Handler) http.Handler {
	if resourceFn == nil {
		resourceFn = RoutePattern
	}
	if actionFn == nil {
		actionFn = MethodAction
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := WithRequestInfo(r.Context(), RequestInfoFromHTTP(r))
			if !g.Check(ctx, *id, resourceFn(r), actionFn(r)).Allowed {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
