// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the validator library with a thread-safe singleton,
// Tenantguard-specific validation tags and user-friendly error messages that
// map onto the API's error format.
//
// # Custom Tags
//
//   - tenantid: letters, digits, '.', '_' and '-', starting with a letter or
//     digit. Tenant IDs appear verbatim in decision cache keys and in the
//     SCAN pattern used for tenant invalidation, so ':' and glob characters
//     are rejected.
//   - authzaction: a lowercase action verb such as read, write or export:pdf.
//   - resource: a non-empty resource name without whitespace or control
//     characters.
//
// # Usage
//
//	type grantRequest struct {
//	    Role     string `json:"role" validate:"required,max=256"`
//	    Resource string `json:"resource" validate:"required,resource"`
//	    Action   string `json:"action" validate:"required,authzaction"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Error field names come from the json tag, so messages refer to the names
// clients actually send.
package validation
