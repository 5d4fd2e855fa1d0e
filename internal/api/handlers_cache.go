// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"net/http"

	"github.com/tomtom215/tenantguard/internal/logging"
)

// CacheStats returns decision cache hit and miss counts for this instance.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	respondJSON(w, r, http.StatusOK, h.gate.CacheStats())
}

// InvalidateCache drops every cached decision of the caller's tenant.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.gate.InvalidateTenant(r.Context(), id.Tenant); err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("tenant", id.Tenant).Msg("Decision cache invalidated")
	respondJSON(w, r, http.StatusOK, map[string]string{"tenant": id.Tenant})
}
