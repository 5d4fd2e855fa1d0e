// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package authz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/cache"
	"github.com/tomtom215/tenantguard/internal/policy"
	"github.com/tomtom215/tenantguard/internal/version"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Log(event audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAuditor) ofType(t audit.EventType) []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audit.Event
	for _, e := range a.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

type failingVersions struct{}

func (failingVersions) TenantVersion(context.Context, string) (int64, error) {
	return 0, version.ErrUnavailable
}
func (failingVersions) UserVersion(context.Context, string) (int64, error) {
	return 0, version.ErrUnavailable
}
func (failingVersions) BumpTenant(context.Context, string) (int64, error) {
	return 0, version.ErrUnavailable
}
func (failingVersions) BumpUser(context.Context, string) (int64, error) {
	return 0, version.ErrUnavailable
}

func newPolicyStore(t *testing.T, perms []policy.PermissionRule, groups []policy.GroupingRule) *policy.Store {
	t.Helper()
	ctx := context.Background()
	backend := policy.NewMemoryBackend()
	for _, p := range perms {
		if _, err := backend.AddPermission(ctx, p.Normalize()); err != nil {
			t.Fatalf("seed permission: %v", err)
		}
	}
	for _, g := range groups {
		if _, err := backend.AddGrouping(ctx, g); err != nil {
			t.Fatalf("seed grouping: %v", err)
		}
	}
	store, err := policy.NewStore(backend, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return store
}

type fixture struct {
	store    *policy.Store
	versions *version.MemoryStore
	cache    *cache.MemoryCache
	auditor  *recordingAuditor
	gate     *Gate
	admin    *AdminService
}

func newFixture(t *testing.T, opts Options, perms []policy.PermissionRule, groups []policy.GroupingRule) *fixture {
	t.Helper()
	f := &fixture{
		store:    newPolicyStore(t, perms, groups),
		versions: version.NewMemoryStore(),
		cache:    cache.NewMemoryCache(1000, 15*time.Second),
		auditor:  &recordingAuditor{},
	}
	f.gate = NewGate(NewEnforcer(f.store), f.versions, f.cache, f.auditor, audit.NewPolicy([]string{"/admin/**"}), opts)
	f.admin = NewAdminService(f.store, f.versions, f.cache, f.auditor)
	return f
}

func user(subject, tenant string) auth.Identity {
	return auth.Identity{Subject: subject, Tenant: tenant}
}

func perm(subject, tenant, resource, action string) policy.PermissionRule {
	return policy.PermissionRule{Subject: subject, Tenant: tenant, Resource: resource, Action: action, Effect: policy.EffectAllow}
}

func member(subject, role, tenant string) policy.GroupingRule {
	return policy.GroupingRule{Subject: subject, Role: role, Tenant: tenant}
}
