// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package version

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]int64
	users   map[string]int64
}

// NewMemoryStore creates an empty in-memory version store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]int64),
		users:   make(map[string]int64),
	}
}

// TenantVersion implements Store.
func (m *MemoryStore) TenantVersion(_ context.Context, tenantID string) (int64, error) {
	return m.get(m.tenants, tenantID)
}

// UserVersion implements Store.
func (m *MemoryStore) UserVersion(_ context.Context, userID string) (int64, error) {
	return m.get(m.users, userID)
}

// BumpTenant implements Store.
func (m *MemoryStore) BumpTenant(_ context.Context, tenantID string) (int64, error) {
	return m.bump(m.tenants, tenantID)
}

// BumpUser implements Store.
func (m *MemoryStore) BumpUser(_ context.Context, userID string) (int64, error) {
	return m.bump(m.users, userID)
}

func (m *MemoryStore) get(counters map[string]int64, id string) (int64, error) {
	if id == "" {
		return 0, ErrEmptyID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := counters[id]; ok {
		return v, nil
	}
	return InitialVersion, nil
}

func (m *MemoryStore) bump(counters map[string]int64, id string) (int64, error) {
	if id == "" {
		return 0, ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := counters[id]
	if !ok {
		v = InitialVersion
	}
	v++
	counters[id] = v
	return v, nil
}
