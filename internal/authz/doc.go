// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

// Package authz decides whether a subject may perform an action on a resource
// within a tenant.
//
// # Architecture
//
//	Request -> Auth Middleware -> Gate.Middleware -> Handler
//	               |                    |
//	          Authenticate        Gate.Check
//	         (internal/auth)          |
//	                 +----------------+-----------------+
//	                 |                |                 |
//	          version.Store      cache.Cache      Enforcer (policy.Store)
//	                                                    |
//	                                              audit.Logger
//
// # Decision Flow
//
// Gate.Check walks a fixed sequence for every request:
//
//	Start -> VersionResolved -> CacheChecked(hit|miss) -> [EnforcerEvaluated]
//	      -> DecisionReady -> AuditEmitted
//
// Every failure after Start resolves to deny, except failures of the version
// store or the decision cache, which only disable the cache for that request.
// The decision cache key embeds the tenant's policy version, so a version bump
// makes every decision computed earlier unreachable.
//
// # Policy Administration
//
// AdminService mutates the policy in a fixed order: persist the rule, bump the
// tenant version (and the user version for role assignments), then record an
// audit event with the before and after state.
//
// # Error Taxonomy
//
// Errors carry an ErrorKind. Only KindPolicyStoreUnavailable and
// KindInvalidRuleData change a decision (both deny); the other kinds are
// absorbed and surface only as authz_errors_total.
//
// # Usage Example
//
//	gate := authz.NewGate(authz.NewEnforcer(store), versions, decisionCache,
//	    auditLogger, audit.NewPolicy(cfg.Audit.SensitivePatterns), authz.Options{})
//
//	r := chi.NewRouter()
//	r.Use(auth.Middleware(authenticator))
//	r.With(gate.Middleware(authz.RoutePattern, authz.MethodAction)).Get("/orders/{id}", handler)
package authz
