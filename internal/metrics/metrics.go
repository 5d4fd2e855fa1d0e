// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

// Package metrics defines the Prometheus instrumentation shared by the
// authorization components:
//
//   - authz_*: decisions, latency, error classes
//   - authz_cache_*: decision cache efficiency and backend health
//   - authz_version_*: version bumps and version store fallbacks
//   - authz_audit_*: audit pipeline throughput and drops
//   - circuit_breaker_*: redis circuit breaker state
//   - api_*: HTTP request metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decision Metrics
	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"action", "decision", "source"}, // source: "cache", "enforcer", "error"
	)

	AuthzDecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "authz_decision_duration_seconds",
			Help: "Duration of authorization decisions in seconds",
			// 10us to 100ms; the in-memory path should sit well under 1ms
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"cache_hit"},
	)

	AuthzDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Total number of authorization denials (for alerting)",
		},
		[]string{"resource_pattern", "action"},
	)

	AuthzErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_errors_total",
			Help: "Total number of authorization errors by class",
		},
		[]string{"error_type"},
	)

	AuthzStaleTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_stale_tokens_total",
			Help: "Total number of requests rejected for carrying outdated authz versions",
		},
	)

	// Policy Metrics
	AuthzPolicyRulesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authz_policy_rules_total",
			Help: "Current number of permission rules loaded",
		},
	)

	AuthzGroupingRulesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authz_grouping_rules_total",
			Help: "Current number of grouping rules loaded",
		},
	)

	AuthzPolicyMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_policy_mutations_total",
			Help: "Total number of policy mutations",
		},
		[]string{"kind", "operation", "result"}, // kind: "permission", "grouping"
	)

	AuthzPolicyReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_policy_reloads_total",
			Help: "Total number of policy snapshot reloads",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Version Metrics
	AuthzVersionBumpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_version_bumps_total",
			Help: "Total number of authorization version bumps",
		},
		[]string{"scope"}, // "tenant", "user"
	)

	// Cache Metrics
	AuthzCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_hits_total",
			Help: "Total number of decision cache hits",
		},
		[]string{"backend"},
	)

	AuthzCacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_misses_total",
			Help: "Total number of decision cache misses",
		},
		[]string{"backend"},
	)

	AuthzCacheBypassTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_bypass_total",
			Help: "Total number of checks that skipped the decision cache",
		},
		[]string{"reason"}, // "version_unavailable", "cache_disabled"
	)

	AuthzCacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_errors_total",
			Help: "Total number of decision cache backend errors (treated as misses)",
		},
		[]string{"backend", "operation"},
	)

	AuthzCacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authz_cache_entries",
			Help: "Current number of entries in the decision cache",
		},
		[]string{"backend"},
	)

	AuthzCacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_invalidations_total",
			Help: "Total number of explicit decision cache invalidations",
		},
		[]string{"backend"},
	)

	// Audit Metrics
	AuthzAuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_audit_events_total",
			Help: "Total number of audit events persisted",
		},
		[]string{"event_type"},
	)

	AuthzAuditDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_audit_dropped_total",
			Help: "Total number of audit events dropped",
		},
		[]string{"reason"}, // "overflow", "write_failed", "closed"
	)

	AuthzAuditBufferUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authz_audit_buffer_usage",
			Help: "Current audit buffer usage (percentage)",
		},
	)

	AuthzAuditFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authz_audit_flush_duration_seconds",
			Help:    "Duration of audit batch writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuthzAuditRetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_audit_retention_deleted_total",
			Help: "Total number of audit events removed by the retention sweep",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordAuthzDecision records the outcome and latency of one authorization check.
func RecordAuthzDecision(resource, action string, allowed, cacheHit bool, source string, duration time.Duration) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisionsTotal.WithLabelValues(action, decision, source).Inc()

	cacheHitLabel := "false"
	if cacheHit {
		cacheHitLabel = "true"
	}
	AuthzDecisionDuration.WithLabelValues(cacheHitLabel).Observe(duration.Seconds())

	if !allowed {
		AuthzDeniedTotal.WithLabelValues(NormalizeResourcePattern(resource), action).Inc()
	}
}

// NormalizeResourcePattern collapses digit runs to "*" to bound label
// cardinality: /orders/123/items -> /orders/*/items.
func NormalizeResourcePattern(resource string) string {
	result := make([]byte, 0, len(resource))
	inNumeric := false

	for i := 0; i < len(resource); i++ {
		c := resource[i]
		if c >= '0' && c <= '9' {
			if !inNumeric {
				result = append(result, '*')
				inNumeric = true
			}
		} else {
			inNumeric = false
			result = append(result, c)
		}
	}

	return string(result)
}

// RecordAuthzError increments the error counter for an error class.
func RecordAuthzError(errorType string) {
	AuthzErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdatePolicyStats sets the loaded rule gauges.
func UpdatePolicyStats(permissions, groupings int) {
	AuthzPolicyRulesTotal.Set(float64(permissions))
	AuthzGroupingRulesTotal.Set(float64(groupings))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
