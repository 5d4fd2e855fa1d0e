// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// readinessTimeout bounds the whole readiness probe.
const readinessTimeout = 2 * time.Second

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 only when every registered dependency check passes.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{
		Status: "ready",
		Checks: make(map[string]string, len(names)),
		Uptime: time.Since(h.startTime).Seconds(),
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status.Status = "not_ready"
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, r, code, status)
}
