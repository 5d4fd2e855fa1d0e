// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package middleware provides infrastructure HTTP middleware shared by every
route: request ID propagation and Prometheus request instrumentation.

Both are chi-compatible func(http.Handler) http.Handler values:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

RequestID accepts an upstream X-Request-ID or generates a UUID, echoes it in
the response and stores it in the logging context, where the audit trail
picks it up as the event's request_id.

PrometheusMetrics labels requests by the matched chi route pattern rather
than the raw path, so /api/v1/admin/roles/{subject} is one series no matter
how many subjects are queried.
*/
package middleware
