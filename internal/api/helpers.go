// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/authz"
	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/validation"
)

// maxBodyBytes bounds request bodies; every body here is a handful of short strings.
const maxBodyBytes = 64 << 10

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// writeJSON marshals v with the given status. Authorization data is never cacheable.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondJSON sends a success envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, status, &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
}

// respondError sends an error envelope. err is logged, never returned to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	writeJSON(w, status, &APIResponse{
		Status: "error",
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: &APIError{Code: code, Message: message},
	})
}

// respondServiceError maps service errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, authz.ErrTenantMismatch) {
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "Rule is outside the caller's tenant", err)
		return
	}
	if errors.Is(err, audit.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch authz.Classify(err) {
	case authz.KindInvalidRuleData:
		respondError(w, r, http.StatusBadRequest, "INVALID_RULE", "Invalid rule", err)
	case authz.KindPolicyStoreUnavailable:
		respondError(w, r, http.StatusServiceUnavailable, "POLICY_STORE_UNAVAILABLE", "Policy store unavailable", err)
	case authz.KindVersionStoreUnavailable:
		respondError(w, r, http.StatusServiceUnavailable, "VERSION_STORE_UNAVAILABLE",
			"Change applied but version bump failed; cached decisions were invalidated", err)
	case authz.KindCacheBackendUnavailable:
		respondError(w, r, http.StatusServiceUnavailable, "CACHE_UNAVAILABLE", "Decision cache unavailable", err)
	case authz.KindCanceled:
		respondError(w, r, http.StatusServiceUnavailable, "CANCELED", "Request canceled", err)
	default:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error", err)
	}
}

// decodeJSON reads a size-limited JSON body into v and validates it.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large", nil)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", nil)
		return false
	}
	if apiErr := validateRequest(v); apiErr != nil {
		writeJSON(w, http.StatusBadRequest, &APIResponse{
			Status:   "error",
			Metadata: Metadata{Timestamp: time.Now().UTC(), RequestID: logging.RequestIDFromContext(r.Context())},
			Error:    apiErr,
		})
		return false
	}
	return true
}

// validateRequest validates a struct using go-playground/validator.
func validateRequest(v interface{}) *APIError {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	apiErr := verr.ToAPIError()
	return &APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// parseTimeParam parses an RFC3339 value already checked by the validator.
func parseTimeParam(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}
