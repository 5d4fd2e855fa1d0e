// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package audit records authorization decisions and policy mutations.

Events are immutable once written. The only removal path is the retention
sweep (CleanupBefore / RetentionSweeper).

# Write Path

Logger.Log never blocks the caller. Events go into a bounded channel; when the
channel is full the oldest queued event is discarded to make room, and the
drop is counted in authz_audit_dropped_total. A single consumer goroutine
batches events (100 events or 1s by default) and hands each batch to the
Store with a write timeout. A failed batch is logged and dropped.

# Stores

  - MemoryStore: bounded in-process store for development and tests
  - DuckDBStore: durable store backed by the authz_audit_events table
  - NoOpStore: discards everything

# Queries

Every query is scoped to a tenant. Filter.TenantID is mandatory and callers
derive it from the authenticated identity, never from request input. Results
are ordered newest first and paginated (default page size 50, max 100).

# Logging Policy

Policy decides which decisions are worth recording: every deny, and allows
on resources matching one of the configured sensitive patterns.

	p := audit.NewPolicy([]string{"/api/v1/admin/**", "/billing/*"})
	p.ShouldLogDecision("/billing/invoices", true) // true
	p.ShouldLogDecision("/reports", true)          // false
	p.ShouldLogDecision("/reports", false)         // true
*/
package audit
