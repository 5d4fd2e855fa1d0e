// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package api exposes the authorization core over HTTP using the chi router.

Routes:

	POST   /api/v1/authorize                 decide {resource, action} for the caller
	GET    /api/v1/admin/permissions         list the tenant's permission rules
	POST   /api/v1/admin/permissions         grant a permission to a role or user
	DELETE /api/v1/admin/permissions         revoke a permission
	GET    /api/v1/admin/roles               list the tenant's role assignments
	POST   /api/v1/admin/roles               assign a role
	DELETE /api/v1/admin/roles               revoke a role
	GET    /api/v1/admin/roles/{subject}     effective roles of a subject
	GET    /api/v1/admin/audit               query the tenant's audit trail
	GET    /api/v1/admin/audit/{id}          one audit event
	GET    /api/v1/admin/cache/stats         decision cache statistics
	POST   /api/v1/admin/cache/invalidate    drop the tenant's cached decisions
	GET    /health/live, /health/ready       probes
	GET    /metrics                          Prometheus exposition

Every /api/v1 route requires an identity established by the configured
auth.Authenticator. The tenant is always taken from that identity and never
from the request body or query. Admin routes are themselves protected by the
authorization gate: the resource is the chi route pattern and the action is
derived from the HTTP method, so granting "read" on
/api/v1/admin/audit to a role lets it query the audit trail.

Responses from admin routes use the APIResponse envelope. The authorize route
returns a bare {"allowed": bool} so it stays cheap for sidecars to parse.
*/
package api
