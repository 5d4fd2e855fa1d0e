// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package services provides suture.Service wrappers for Tenantguard components.

Each wrapper translates a component's lifecycle (ListenAndServe, Run, ticker
loops) into suture's context-aware Serve method and identifies itself through
fmt.Stringer for supervisor event logs.

# Available Services

HTTPServerService wraps *http.Server. Cancellation triggers Shutdown with a
bounded timeout so in-flight authorization checks can finish.

AuditLoggerService runs audit.Logger.Run. The queue is flushed to the audit
store before Serve returns.

PolicyRefreshService reloads the policy snapshot from the durable backend on
a fixed interval. Reload failures are counted in
authz_policy_reloads_total{result="failure"} and the previous snapshot stays
in place.

audit.RetentionSweeper implements suture.Service directly and needs no wrapper.

# Return Values

  - nil: clean stop, not restarted
  - ctx.Err(): shutdown requested
  - any other error: crash, restarted with backoff
  - suture.ErrDoNotRestart: permanent stop
*/
package services
