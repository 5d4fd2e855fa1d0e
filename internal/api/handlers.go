// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/authz"
)

// AuditReader reads the audit trail. *audit.Logger implements it.
type AuditReader interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.Event, int64, error)
	Get(ctx context.Context, tenantID, id string) (*audit.Event, error)
}

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler serves the HTTP endpoints.
type Handler struct {
	gate      *authz.Gate
	admin     *authz.AdminService
	audit     AuditReader
	checks    map[string]ReadinessCheck
	startTime time.Time
}

// NewHandler creates a handler. checks are run by the readiness probe.
func NewHandler(gate *authz.Gate, admin *authz.AdminService, auditReader AuditReader, checks map[string]ReadinessCheck) *Handler {
	if checks == nil {
		checks = map[string]ReadinessCheck{}
	}
	return &Handler{
		gate:      gate,
		admin:     admin,
		audit:     auditReader,
		checks:    checks,
		startTime: time.Now(),
	}
}

// identity returns the caller established by auth.Middleware, answering 401
// when there is none.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return auth.Identity{}, false
	}
	return *id, true
}

// Authorize answers whether the caller may perform an action on a resource.
// A deny is a normal answer, so both outcomes are 200.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req AuthorizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := authz.WithRequestInfo(r.Context(), authz.RequestInfoFromHTTP(r))
	d := h.gate.Check(ctx, id, req.Resource, req.Action)
	writeJSON(w, http.StatusOK, AuthorizeResponse{Allowed: d.Allowed})
}
