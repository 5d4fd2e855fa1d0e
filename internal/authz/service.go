// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/cache"
	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/metrics"
	"github.com/tomtom215/tenantguard/internal/policy"
	"github.com/tomtom215/tenantguard/internal/version"
)

// ErrTenantMismatch is returned when an administrator targets a rule outside
// their own tenant.
var ErrTenantMismatch = errors.New("rule tenant does not match caller tenant")

// MutationResult reports the outcome of a policy mutation.
type MutationResult struct {
	// Changed is false when the rule set already had (or lacked) the rule.
	Changed bool `json:"changed"`

	// TenantVersion is the tenant's policy version after the bump.
	TenantVersion int64 `json:"tenant_version"`

	// UserVersion is the subject's version after the bump, for grouping changes.
	UserVersion int64 `json:"user_version,omitempty"`
}

// AdminService applies policy mutations. Each mutation is persisted first,
// then the affected versions are bumped, then an audit event is emitted.
type AdminService struct {
	store    *policy.Store
	versions version.Store
	cache    cache.Cache
	auditor  Auditor
}

// NewAdminService wires an admin service. c is invalidated directly when a
// version bump fails; it may be nil.
func NewAdminService(store *policy.Store, versions version.Store, c cache.Cache, auditor Auditor) *AdminService {
	if c == nil {
		c = cache.NoOp{}
	}
	return &AdminService{store: store, versions: versions, cache: c, auditor: auditor}
}

// AddPermission grants rule within the actor's tenant.
func (s *AdminService) AddPermission(ctx context.Context, actor auth.Identity, rule policy.PermissionRule) (MutationResult, error) {
	return s.mutatePermission(ctx, actor, rule, true)
}

// RemovePermission revokes rule within the actor's tenant.
func (s *AdminService) RemovePermission(ctx context.Context, actor auth.Identity, rule policy.PermissionRule) (MutationResult, error) {
	return s.mutatePermission(ctx, actor, rule, false)
}

// AddGrouping assigns rule.Role to rule.Subject within the actor's tenant.
func (s *AdminService) AddGrouping(ctx context.Context, actor auth.Identity, rule policy.GroupingRule) (MutationResult, error) {
	return s.mutateGrouping(ctx, actor, rule, true)
}

// RemoveGrouping revokes rule.Role from rule.Subject within the actor's tenant.
func (s *AdminService) RemoveGrouping(ctx context.Context, actor auth.Identity, rule policy.GroupingRule) (MutationResult, error) {
	return s.mutateGrouping(ctx, actor, rule, false)
}

// Permissions lists the actor's tenant permission rules.
func (s *AdminService) Permissions(actor auth.Identity) ([]policy.PermissionRule, error) {
	rules, err := s.store.Permissions(actor.Tenant)
	return rules, wrap("list permissions", err)
}

// Groupings lists the actor's tenant grouping rules.
func (s *AdminService) Groupings(actor auth.Identity) ([]policy.GroupingRule, error) {
	rules, err := s.store.Groupings(actor.Tenant)
	return rules, wrap("list groupings", err)
}

// RolesFor returns the roles subject holds in the actor's tenant, including
// inherited ones.
func (s *AdminService) RolesFor(actor auth.Identity, subject string) ([]string, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, &Error{Kind: KindPolicyStoreUnavailable, Op: "roles", Err: policy.ErrNoSnapshot}
	}
	return snap.RolesFor(actor.Tenant, subject), nil
}

func (s *AdminService) mutatePermission(ctx context.Context, actor auth.Identity, rule policy.PermissionRule, add bool) (MutationResult, error) {
	op, action := "remove", audit.ActionRemovePermission
	if add {
		op, action = "add", audit.ActionAddPermission
	}
	rule = rule.Normalize()
	if err := checkTenant(actor, rule.Tenant); err != nil {
		metrics.AuthzPolicyMutationsTotal.WithLabelValues("permission", op, "rejected").Inc()
		return MutationResult{}, &Error{Kind: KindInvalidRuleData, Op: op + " permission", Err: err}
	}

	before := s.rolePermissions(rule.Tenant, rule.Subject)

	var changed bool
	var err error
	if add {
		changed, err = s.store.AddPermission(ctx, rule)
	} else {
		changed, err = s.store.RemovePermission(ctx, rule)
	}
	if err != nil {
		metrics.AuthzPolicyMutationsTotal.WithLabelValues("permission", op, "failure").Inc()
		return MutationResult{}, wrap(op+" permission", err)
	}
	metrics.AuthzPolicyMutationsTotal.WithLabelValues("permission", op, resultLabel(changed)).Inc()

	// Audited even when the bump fails; PolicyVersion is then 0.
	result := MutationResult{Changed: changed}
	var bumpErr error
	result.TenantVersion, bumpErr = s.bumpTenant(ctx, rule.Tenant)

	s.emit(ctx, audit.Event{
		TenantID:         rule.Tenant,
		UserID:           actor.Subject,
		EventType:        audit.EventTypePolicyChange,
		EventAction:      action,
		Resource:         rule.Resource,
		Action:           rule.Action,
		PolicyVersion:    result.TenantVersion,
		TargetEntityType: "role",
		TargetEntityID:   rule.Subject,
		OldValue:         audit.MarshalValue(before),
		NewValue:         audit.MarshalValue(s.rolePermissions(rule.Tenant, rule.Subject)),
	})
	s.recordStats()
	if bumpErr != nil {
		return result, bumpErr
	}

	logging.Ctx(ctx).Info().
		Str("operation", op).
		Str("role", rule.Subject).
		Str("resource", rule.Resource).
		Str("action", rule.Action).
		Bool("changed", changed).
		Int64("tenant_version", result.TenantVersion).
		Msg("Permission rule updated")
	return result, nil
}

func (s *AdminService) mutateGrouping(ctx context.Context, actor auth.Identity, rule policy.GroupingRule, add bool) (MutationResult, error) {
	op, action := "remove", audit.ActionRevokeRole
	if add {
		op, action = "add", audit.ActionAssignRole
	}
	if err := checkTenant(actor, rule.Tenant); err != nil {
		metrics.AuthzPolicyMutationsTotal.WithLabelValues("grouping", op, "rejected").Inc()
		return MutationResult{}, &Error{Kind: KindInvalidRuleData, Op: op + " grouping", Err: err}
	}

	before := s.subjectRoles(rule.Tenant, rule.Subject)

	var changed bool
	var err error
	if add {
		changed, err = s.store.AddGrouping(ctx, rule)
	} else {
		changed, err = s.store.RemoveGrouping(ctx, rule)
	}
	if err != nil {
		metrics.AuthzPolicyMutationsTotal.WithLabelValues("grouping", op, "failure").Inc()
		return MutationResult{}, wrap(op+" grouping", err)
	}
	metrics.AuthzPolicyMutationsTotal.WithLabelValues("grouping", op, resultLabel(changed)).Inc()

	result := MutationResult{Changed: changed}
	var bumpErr error
	result.TenantVersion, bumpErr = s.bumpTenant(ctx, rule.Tenant)
	if bumpErr == nil {
		result.UserVersion, err = s.versions.BumpUser(ctx, rule.Subject)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("subject", rule.Subject).Msg("User version bump failed after role change")
			bumpErr = wrap("bump user version", err)
		} else {
			metrics.AuthzVersionBumpsTotal.WithLabelValues("user").Inc()
		}
	}

	s.emit(ctx, audit.Event{
		TenantID:         rule.Tenant,
		UserID:           actor.Subject,
		EventType:        audit.EventTypeRoleAssignment,
		EventAction:      action,
		Resource:         rule.Role,
		PolicyVersion:    result.TenantVersion,
		TargetEntityType: "user",
		TargetEntityID:   rule.Subject,
		OldValue:         audit.MarshalValue(before),
		NewValue:         audit.MarshalValue(s.subjectRoles(rule.Tenant, rule.Subject)),
	})
	s.recordStats()
	if bumpErr != nil {
		return result, bumpErr
	}

	logging.Ctx(ctx).Info().
		Str("operation", op).
		Str("subject", rule.Subject).
		Str("role", rule.Role).
		Bool("changed", changed).
		Int64("tenant_version", result.TenantVersion).
		Int64("user_version", result.UserVersion).
		Msg("Role assignment updated")
	return result, nil
}

// bumpTenant increments the tenant version. When that fails the rule change
// is already live, so cached decisions for the tenant are dropped directly.
func (s *AdminService) bumpTenant(ctx context.Context, tenant string) (int64, error) {
	v, err := s.versions.BumpTenant(ctx, tenant)
	if err == nil {
		metrics.AuthzVersionBumpsTotal.WithLabelValues("tenant").Inc()
		return v, nil
	}

	logging.Ctx(ctx).Error().Err(err).Msg("Tenant version bump failed after policy change, invalidating decision cache")
	if ierr := s.cache.InvalidateTenant(ctx, tenant); ierr != nil {
		logging.Ctx(ctx).Error().Err(ierr).Msg("Decision cache invalidation failed")
	}
	return 0, wrap("bump tenant version", err)
}

func (s *AdminService) rolePermissions(tenant, role string) []policy.PermissionRule {
	if snap := s.store.Snapshot(); snap != nil {
		return snap.PermissionsFor(tenant, role)
	}
	return []policy.PermissionRule{}
}

func (s *AdminService) subjectRoles(tenant, subject string) []string {
	if snap := s.store.Snapshot(); snap != nil {
		return snap.RolesFor(tenant, subject)
	}
	return []string{}
}

func (s *AdminService) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	withRequestInfo(ctx, &event)
	s.auditor.Log(event)
}

func (s *AdminService) recordStats() {
	if snap := s.store.Snapshot(); snap != nil {
		metrics.UpdatePolicyStats(snap.Counts())
	}
}

func checkTenant(actor auth.Identity, tenant string) error {
	if actor.Tenant == "" {
		return auth.ErrMissingTenant
	}
	if tenant != actor.Tenant {
		return fmt.Errorf("%w: %q", ErrTenantMismatch, tenant)
	}
	return nil
}

func resultLabel(changed bool) string {
	if changed {
		return "changed"
	}
	return "unchanged"
}
