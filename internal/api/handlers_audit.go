// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/tenantguard/internal/audit"
)

// QueryAudit returns one page of the caller's tenant audit trail, newest first.
//
// Query parameters: user_id, event_type, decision, from, to (RFC3339),
// page (default 1), page_size (default 50, max 100).
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := auditQuery{
		UserID:    q.Get("user_id"),
		EventType: q.Get("event_type"),
		Decision:  q.Get("decision"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Page:      getIntParam(r, "page", 1),
		PageSize:  getIntParam(r, "page_size", audit.DefaultPageSize),
	}
	if apiErr := validateRequest(&params); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	filter := audit.Filter{
		TenantID:  id.Tenant,
		UserID:    params.UserID,
		EventType: audit.EventType(params.EventType),
		Decision:  audit.Decision(params.Decision),
		From:      parseTimeParam(params.From),
		To:        parseTimeParam(params.To),
		Page:      params.Page,
		PageSize:  params.PageSize,
	}
	filter.Normalize()

	events, total, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, AuditPage{
		Events:   events,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// GetAuditEvent returns one event of the caller's tenant. Events of other
// tenants are reported as not found.
func (h *Handler) GetAuditEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	eventID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(eventID); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid UUID", nil)
		return
	}

	event, err := h.audit.Get(r.Context(), id.Tenant, eventID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, event)
}
