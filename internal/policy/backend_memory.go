// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package policy

import (
	"context"
	"sync"
)

// MemoryBackend keeps rules in process memory. Rules are lost on restart.
type MemoryBackend struct {
	mu          sync.RWMutex
	permissions map[string]PermissionRule
	groupings   map[string]GroupingRule
	order       []string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		permissions: make(map[string]PermissionRule),
		groupings:   make(map[string]GroupingRule),
	}
}

// LoadAll returns all rules in insertion order.
func (m *MemoryBackend) LoadAll(_ context.Context) ([]PermissionRule, []GroupingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perms := make([]PermissionRule, 0, len(m.permissions))
	groups := make([]GroupingRule, 0, len(m.groupings))
	for _, id := range m.order {
		if p, ok := m.permissions[id]; ok {
			perms = append(perms, p)
		} else if g, ok := m.groupings[id]; ok {
			groups = append(groups, g)
		}
	}
	return perms, groups, nil
}

// AddPermission implements Backend.
func (m *MemoryBackend) AddPermission(_ context.Context, rule PermissionRule) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rule.ID()
	if _, ok := m.permissions[id]; ok {
		return false, nil
	}
	m.permissions[id] = rule
	m.order = append(m.order, id)
	return true, nil
}

// RemovePermission implements Backend.
func (m *MemoryBackend) RemovePermission(_ context.Context, rule PermissionRule) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rule.ID()
	if _, ok := m.permissions[id]; !ok {
		return false, nil
	}
	delete(m.permissions, id)
	m.dropOrder(id)
	return true, nil
}

// AddGrouping implements Backend.
func (m *MemoryBackend) AddGrouping(_ context.Context, rule GroupingRule) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rule.ID()
	if _, ok := m.groupings[id]; ok {
		return false, nil
	}
	m.groupings[id] = rule
	m.order = append(m.order, id)
	return true, nil
}

// RemoveGrouping implements Backend.
func (m *MemoryBackend) RemoveGrouping(_ context.Context, rule GroupingRule) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rule.ID()
	if _, ok := m.groupings[id]; !ok {
		return false, nil
	}
	delete(m.groupings, id)
	m.dropOrder(id)
	return true, nil
}

func (m *MemoryBackend) dropOrder(id string) {
	for i, cur := range m.order {
		if cur == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
