// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package policy

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/tenantguard/internal/logging"
)

// DomainModel is the casbin RBAC-with-domains model equivalent to Snapshot
// evaluation under AllowOverrides. It is used to parse seed files, which are
// written in casbin CSV form:
//
//	p, admin, acme, /users, write, allow
//	g, alice, admin, acme
const DomainModel = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub, r.dom) && r.dom == p.dom && r.obj == p.obj && r.act == p.act
`

// NewDomainModel parses DomainModel.
func NewDomainModel() (model.Model, error) {
	m, err := model.NewModelFromString(DomainModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse domain model: %w", err)
	}
	return m, nil
}

// LoadSeedFile parses a casbin CSV policy file into typed rules. A permission
// line without an effect column is treated as allow.
func LoadSeedFile(path string) ([]PermissionRule, []GroupingRule, error) {
	m, err := NewDomainModel()
	if err != nil {
		return nil, nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load seed file %s: %w", path, err)
	}

	rawPolicies, err := enforcer.GetPolicy()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read seed policies: %w", err)
	}
	rawGroupings, err := enforcer.GetGroupingPolicy()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read seed groupings: %w", err)
	}

	perms := make([]PermissionRule, 0, len(rawPolicies))
	for i, p := range rawPolicies {
		if len(p) < 4 {
			return nil, nil, fmt.Errorf("%w: seed policy %d has %d fields, want at least 4", ErrInvalidRule, i+1, len(p))
		}
		rule := PermissionRule{Subject: p[0], Tenant: p[1], Resource: p[2], Action: p[3]}
		if len(p) > 4 {
			rule.Effect = Effect(p[4])
		}
		rule = rule.Normalize()
		if err := rule.Validate(); err != nil {
			return nil, nil, fmt.Errorf("seed policy %d: %w", i+1, err)
		}
		perms = append(perms, rule)
	}

	groups := make([]GroupingRule, 0, len(rawGroupings))
	for i, g := range rawGroupings {
		if len(g) < 3 {
			return nil, nil, fmt.Errorf("%w: seed grouping %d has %d fields, want 3", ErrInvalidRule, i+1, len(g))
		}
		rule := GroupingRule{Subject: g[0], Role: g[1], Tenant: g[2]}
		if err := rule.Validate(); err != nil {
			return nil, nil, fmt.Errorf("seed grouping %d: %w", i+1, err)
		}
		groups = append(groups, rule)
	}

	return perms, groups, nil
}

// Seed loads path into store when the store holds no rules yet. It returns the
// number of rules added; an already populated store is left untouched.
func Seed(ctx context.Context, store *Store, path string) (int, error) {
	snap := store.Snapshot()
	if snap == nil {
		return 0, ErrNoSnapshot
	}
	if np, ng := snap.Counts(); np+ng > 0 {
		logging.Debug().Str("path", path).Msg("Policy store already populated, skipping seed")
		return 0, nil
	}

	perms, groups, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, p := range perms {
		ok, err := store.AddPermission(ctx, p)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	for _, g := range groups {
		ok, err := store.AddGrouping(ctx, g)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}

	logging.Info().Str("path", path).Int("rules", added).Msg("Policy store seeded")
	return added, nil
}
