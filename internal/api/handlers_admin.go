// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/authz"
	"github.com/tomtom215/tenantguard/internal/policy"
)

// ListPermissions returns the caller's tenant permission rules.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rules, err := h.admin.Permissions(id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, rules)
}

// AddPermission grants a permission within the caller's tenant.
func (h *Handler) AddPermission(w http.ResponseWriter, r *http.Request) {
	h.mutatePermission(w, r, h.admin.AddPermission)
}

// RemovePermission revokes a permission within the caller's tenant.
func (h *Handler) RemovePermission(w http.ResponseWriter, r *http.Request) {
	h.mutatePermission(w, r, h.admin.RemovePermission)
}

// ListRoles returns the caller's tenant role assignments.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rules, err := h.admin.Groupings(id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, rules)
}

// AssignRole assigns a role within the caller's tenant.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	h.mutateGrouping(w, r, h.admin.AddGrouping)
}

// RevokeRole revokes a role within the caller's tenant.
func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	h.mutateGrouping(w, r, h.admin.RemoveGrouping)
}

// SubjectRoles returns the effective roles of one subject in the caller's tenant.
func (h *Handler) SubjectRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	subject := chi.URLParam(r, "subject")
	if subject == "" || len(subject) > 256 {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "subject is required", nil)
		return
	}
	roles, err := h.admin.RolesFor(id, subject)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, SubjectRoles{Subject: subject, Roles: roles})
}

type permissionMutation func(ctx context.Context, actor auth.Identity, rule policy.PermissionRule) (authz.MutationResult, error)

type groupingMutation func(ctx context.Context, actor auth.Identity, rule policy.GroupingRule) (authz.MutationResult, error)

func (h *Handler) mutatePermission(w http.ResponseWriter, r *http.Request, apply permissionMutation) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req PermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rule := policy.PermissionRule{
		Subject:  req.Subject,
		Tenant:   id.Tenant,
		Resource: req.Resource,
		Action:   req.Action,
		Effect:   policy.Effect(req.Effect),
	}
	ctx := authz.WithRequestInfo(r.Context(), authz.RequestInfoFromHTTP(r))
	res, err := apply(ctx, id, rule)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, mutationStatus(r, res), res)
}

func (h *Handler) mutateGrouping(w http.ResponseWriter, r *http.Request, apply groupingMutation) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rule := policy.GroupingRule{Subject: req.Subject, Role: req.Role, Tenant: id.Tenant}
	ctx := authz.WithRequestInfo(r.Context(), authz.RequestInfoFromHTTP(r))
	res, err := apply(ctx, id, rule)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, mutationStatus(r, res), res)
}

// mutationStatus is 201 for a POST that added a rule and 200 otherwise.
func mutationStatus(r *http.Request, res authz.MutationResult) int {
	if r.Method == http.MethodPost && res.Changed {
		return http.StatusCreated
	}
	return http.StatusOK
}
