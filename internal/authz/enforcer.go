// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package authz

import (
	"context"

	"github.com/tomtom215/tenantguard/internal/policy"
)

// Enforcer evaluates requests against the current policy snapshot.
type Enforcer struct {
	store *policy.Store
}

// NewEnforcer creates an enforcer over store.
func NewEnforcer(store *policy.Store) *Enforcer {
	return &Enforcer{store: store}
}

// Enforce decides req. Any error is accompanied by false.
func (e *Enforcer) Enforce(ctx context.Context, req policy.Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, wrap("enforce", err)
	}

	snap := e.store.Snapshot()
	if snap == nil {
		return false, &Error{Kind: KindPolicyStoreUnavailable, Op: "enforce", Err: policy.ErrNoSnapshot}
	}

	allowed, err := snap.Evaluate(req)
	if err != nil {
		return false, &Error{Kind: KindInvalidRuleData, Op: "enforce", Err: err}
	}
	return allowed, nil
}

// RolesFor returns every role subject holds in tenant.
func (e *Enforcer) RolesFor(tenant, subject string) ([]string, error) {
	snap := e.store.Snapshot()
	if snap == nil {
		return nil, &Error{Kind: KindPolicyStoreUnavailable, Op: "roles", Err: policy.ErrNoSnapshot}
	}
	return snap.RolesFor(tenant, subject), nil
}
