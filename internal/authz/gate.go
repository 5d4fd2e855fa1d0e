// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package authz

import (
	"context"
	"time"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/cache"
	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/metrics"
	"github.com/tomtom215/tenantguard/internal/policy"
	"github.com/tomtom215/tenantguard/internal/version"
)

// Auditor receives audit events. *audit.Logger implements it.
type Auditor interface {
	Log(event audit.Event)
}

// Options tunes the Gate.
type Options struct {
	// IncludeUserVersion folds the subject's user version into decision
	// cache keys, so a role change for one user invalidates only that
	// user's cached decisions without waiting for the tenant bump.
	IncludeUserVersion bool

	// EnforceTokenVersions denies identities whose embedded versions are
	// older than the current ones.
	EnforceTokenVersions bool
}

// Decision reasons.
const (
	ReasonPolicy          = "policy"
	ReasonCache           = "cache"
	ReasonStaleToken      = "stale_token"
	ReasonInvalidRequest  = "invalid_request"
	ReasonPolicyStore     = "policy_store_unavailable"
	ReasonContextCanceled = "canceled"
)

// Decision is the outcome of Gate.Check. Reason and Err are for operators
// and audit records; they must never be returned to the denied caller.
type Decision struct {
	Allowed       bool
	CacheHit      bool
	PolicyVersion int64
	Reason        string
	Err           error
}

// Gate orchestrates version resolution, the decision cache, the enforcer and
// the audit trail for each authorization check.
type Gate struct {
	enforcer *Enforcer
	versions version.Store
	cache    cache.Cache
	auditor  Auditor
	policy   *audit.Policy
	opts     Options

	throttle *logging.Throttle
}

// NewGate wires a gate. A nil cache disables caching; a nil auditor or
// policy disables audit emission.
func NewGate(enforcer *Enforcer, versions version.Store, c cache.Cache, auditor Auditor, auditPolicy *audit.Policy, opts Options) *Gate {
	if c == nil {
		c = cache.NoOp{}
	}
	if auditPolicy == nil {
		auditPolicy = audit.NewPolicy(nil)
	}
	return &Gate{
		enforcer: enforcer,
		versions: versions,
		cache:    c,
		auditor:  auditor,
		policy:   auditPolicy,
		opts:     opts,
		throttle: logging.NewThrottle(10*time.Second, 1),
	}
}

// Check decides whether id may perform action on resource within id's tenant.
// It never returns an error separately: every failure that matters is a deny.
func (g *Gate) Check(ctx context.Context, id auth.Identity, resource, action string) Decision {
	start := time.Now()
	req := policy.Request{Subject: id.Subject, Tenant: id.Tenant, Resource: resource, Action: action}

	d, source := g.decide(ctx, id, req)

	metrics.RecordAuthzDecision(resource, action, d.Allowed, d.CacheHit, source, time.Since(start))
	if d.Err != nil {
		metrics.RecordAuthzError(string(Classify(d.Err)))
	}
	if !d.Allowed {
		logging.Ctx(ctx).Debug().
			Str("resource", resource).
			Str("action", action).
			Str("reason", d.Reason).
			AnErr("cause", d.Err).
			Msg("Authorization denied")
	}

	if g.policy.ShouldLogDecision(resource, d.Allowed) {
		g.emit(ctx, audit.Event{
			TenantID:      id.Tenant,
			UserID:        id.Subject,
			EventType:     audit.EventTypeAuthorization,
			EventAction:   audit.ActionCheck,
			Resource:      resource,
			Action:        action,
			Decision:      audit.DecisionOf(d.Allowed),
			PolicyVersion: d.PolicyVersion,
		})
	}
	return d
}

// decide runs the state machine up to DecisionReady and reports the decision
// source for metrics.
func (g *Gate) decide(ctx context.Context, id auth.Identity, req policy.Request) (Decision, string) {
	if err := req.Validate(); err != nil {
		return Decision{Reason: ReasonInvalidRequest, Err: &Error{Kind: KindInvalidRuleData, Op: "check", Err: err}}, "error"
	}
	if err := ctx.Err(); err != nil {
		return Decision{Reason: ReasonContextCanceled, Err: wrap("check", err)}, "error"
	}

	// VersionResolved
	tenantV, userV, verr := version.Versions(ctx, g.versions, req.Tenant, req.Subject)
	cacheUsable := verr == nil
	if verr != nil {
		metrics.AuthzCacheBypassTotal.WithLabelValues("version_unavailable").Inc()
		metrics.RecordAuthzError(string(KindVersionStoreUnavailable))
		g.throttle.Event(logging.Ctx(ctx).Warn()).Err(verr).Msg("Version store unavailable, bypassing decision cache")
		tenantV, userV = 0, 0
	}

	if g.opts.EnforceTokenVersions && cacheUsable && id.HasVersions() && isStale(id, tenantV, userV) {
		metrics.AuthzStaleTokensTotal.Inc()
		g.emit(ctx, audit.Event{
			TenantID:      id.Tenant,
			UserID:        id.Subject,
			EventType:     audit.EventTypeSecurity,
			EventAction:   audit.ActionStaleToken,
			Resource:      req.Resource,
			Action:        req.Action,
			Decision:      audit.DecisionDeny,
			PolicyVersion: tenantV,
			OldValue:      audit.MarshalValue(map[string]int64{"tenant_v": id.TenantVersion, "user_v": id.UserVersion}),
			NewValue:      audit.MarshalValue(map[string]int64{"tenant_v": tenantV, "user_v": userV}),
		})
		return Decision{PolicyVersion: tenantV, Reason: ReasonStaleToken}, "stale_token"
	}

	// CacheChecked
	key := cache.Key{
		Tenant:        req.Tenant,
		PolicyVersion: tenantV,
		Subject:       req.Subject,
		Resource:      req.Resource,
		Action:        req.Action,
	}
	if g.opts.IncludeUserVersion {
		key.UserVersion = userV
	}
	if cacheUsable {
		if allowed, found := g.cache.Get(ctx, key); found {
			return Decision{Allowed: allowed, CacheHit: true, PolicyVersion: tenantV, Reason: ReasonCache}, "cache"
		}
	}

	// EnforcerEvaluated
	allowed, err := g.enforcer.Enforce(ctx, req)
	if err != nil {
		reason := ReasonPolicyStore
		switch Classify(err) {
		case KindInvalidRuleData:
			reason = ReasonInvalidRequest
		case KindCanceled:
			reason = ReasonContextCanceled
		}
		return Decision{PolicyVersion: tenantV, Reason: reason, Err: err}, "error"
	}

	if cacheUsable {
		g.cache.Set(ctx, key, allowed)
	}
	return Decision{Allowed: allowed, PolicyVersion: tenantV, Reason: ReasonPolicy}, "enforcer"
}

// isStale reports whether the versions embedded in id predate the current
// ones. A zero embedded version is not checked.
func isStale(id auth.Identity, tenantV, userV int64) bool {
	if id.TenantVersion != 0 && id.TenantVersion < tenantV {
		return true
	}
	return id.UserVersion != 0 && id.UserVersion < userV
}

// emit sends an event to the auditor, adding request context.
func (g *Gate) emit(ctx context.Context, event audit.Event) {
	if g.auditor == nil {
		return
	}
	withRequestInfo(ctx, &event)
	g.auditor.Log(event)
}

// Versions resolves the current tenant and user versions, for token issuers
// that embed them.
func (g *Gate) Versions(ctx context.Context, tenantID, userID string) (tenantV, userV int64, err error) {
	tenantV, userV, err = version.Versions(ctx, g.versions, tenantID, userID)
	return tenantV, userV, wrap("versions", err)
}

// CacheStats returns the decision cache statistics.
func (g *Gate) CacheStats() cache.Stats {
	return g.cache.Stats()
}

// InvalidateTenant drops every cached decision of tenant.
func (g *Gate) InvalidateTenant(ctx context.Context, tenant string) error {
	return wrap("invalidate", g.cache.InvalidateTenant(ctx, tenant))
}
