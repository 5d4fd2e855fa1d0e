// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package policy

import (
	"sort"
)

type permKey struct {
	tenant   string
	resource string
	action   string
}

type edgeKey struct {
	tenant  string
	subject string
}

type grant struct {
	subject string
	effect  Effect
}

// Snapshot is an immutable, compiled view of the rule set. All methods are
// safe for concurrent use.
type Snapshot struct {
	grants      map[permKey][]grant
	edges       map[edgeKey][]string
	permissions []PermissionRule
	groupings   []GroupingRule
	combinator  Combinator
}

// NewSnapshot compiles the given rules. Duplicate rules are kept once.
// A nil combinator means AllowOverrides.
func NewSnapshot(permissions []PermissionRule, groupings []GroupingRule, combinator Combinator) *Snapshot {
	if combinator == nil {
		combinator = AllowOverrides{}
	}

	s := &Snapshot{
		grants:      make(map[permKey][]grant),
		edges:       make(map[edgeKey][]string),
		permissions: make([]PermissionRule, 0, len(permissions)),
		groupings:   make([]GroupingRule, 0, len(groupings)),
		combinator:  combinator,
	}

	seen := make(map[string]struct{}, len(permissions)+len(groupings))
	for _, p := range permissions {
		p = p.Normalize()
		id := p.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		k := permKey{tenant: p.Tenant, resource: p.Resource, action: p.Action}
		s.grants[k] = append(s.grants[k], grant{subject: p.Subject, effect: p.Effect})
		s.permissions = append(s.permissions, p)
	}
	for _, g := range groupings {
		id := g.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		k := edgeKey{tenant: g.Tenant, subject: g.Subject}
		s.edges[k] = append(s.edges[k], g.Role)
		s.groupings = append(s.groupings, g)
	}

	return s
}

// Evaluate decides req against the snapshot. Errors always accompany a false
// result and indicate malformed request or rule data.
func (s *Snapshot) Evaluate(req Request) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}

	grants := s.grants[permKey{tenant: req.Tenant, resource: req.Resource, action: req.Action}]
	if len(grants) == 0 {
		return false, nil
	}

	reach := s.reachable(req.Tenant, req.Subject)
	matched := make([]Effect, 0, len(grants))
	for _, g := range grants {
		if _, ok := reach[g.subject]; ok {
			matched = append(matched, g.effect)
		}
	}
	if len(matched) == 0 {
		return false, nil
	}

	allowed, err := s.combinator.Combine(matched)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// reachable returns subject plus every role reachable from it through grouping
// edges of tenant. Cycles are tolerated.
func (s *Snapshot) reachable(tenant, subject string) map[string]struct{} {
	seen := map[string]struct{}{subject: {}}
	queue := []string{subject}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, role := range s.edges[edgeKey{tenant: tenant, subject: cur}] {
			if _, ok := seen[role]; ok {
				continue
			}
			seen[role] = struct{}{}
			queue = append(queue, role)
		}
	}
	return seen
}

// RolesFor returns every role subject holds in tenant, directly or through
// role inheritance, sorted by name.
func (s *Snapshot) RolesFor(tenant, subject string) []string {
	reach := s.reachable(tenant, subject)
	delete(reach, subject)
	roles := make([]string, 0, len(reach))
	for r := range reach {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// Permissions returns the permission rules of tenant. An empty tenant returns all rules.
func (s *Snapshot) Permissions(tenant string) []PermissionRule {
	out := make([]PermissionRule, 0)
	for _, p := range s.permissions {
		if tenant == "" || p.Tenant == tenant {
			out = append(out, p)
		}
	}
	return out
}

// Groupings returns the grouping rules of tenant. An empty tenant returns all rules.
func (s *Snapshot) Groupings(tenant string) []GroupingRule {
	out := make([]GroupingRule, 0)
	for _, g := range s.groupings {
		if tenant == "" || g.Tenant == tenant {
			out = append(out, g)
		}
	}
	return out
}

// PermissionsFor returns the permission rules of tenant granted directly to subject.
func (s *Snapshot) PermissionsFor(tenant, subject string) []PermissionRule {
	out := make([]PermissionRule, 0)
	for _, p := range s.permissions {
		if p.Tenant == tenant && p.Subject == subject {
			out = append(out, p)
		}
	}
	return out
}

// Counts returns the number of permission and grouping rules.
func (s *Snapshot) Counts() (permissions, groupings int) {
	return len(s.permissions), len(s.groupings)
}

// Combinator returns the effect combinator the snapshot was compiled with.
func (s *Snapshot) Combinator() Combinator {
	return s.combinator
}

// withPermission returns a copy of s with p added or removed.
func (s *Snapshot) withPermission(p PermissionRule, add bool) *Snapshot {
	perms := make([]PermissionRule, 0, len(s.permissions)+1)
	id := p.ID()
	for _, cur := range s.permissions {
		if !add && cur.ID() == id {
			continue
		}
		perms = append(perms, cur)
	}
	if add {
		perms = append(perms, p)
	}
	return NewSnapshot(perms, s.groupings, s.combinator)
}

// withGrouping returns a copy of s with g added or removed.
func (s *Snapshot) withGrouping(g GroupingRule, add bool) *Snapshot {
	groups := make([]GroupingRule, 0, len(s.groupings)+1)
	id := g.ID()
	for _, cur := range s.groupings {
		if !add && cur.ID() == id {
			continue
		}
		groups = append(groups, cur)
	}
	if add {
		groups = append(groups, g)
	}
	return NewSnapshot(s.permissions, groups, s.combinator)
}
