// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/tenantguard/internal/logging"
)

// Backend is durable rule storage. Add and Remove report whether the stored
// rule set changed; adding a rule that already exists is not an error.
type Backend interface {
	LoadAll(ctx context.Context) ([]PermissionRule, []GroupingRule, error)
	AddPermission(ctx context.Context, rule PermissionRule) (bool, error)
	RemovePermission(ctx context.Context, rule PermissionRule) (bool, error)
	AddGrouping(ctx context.Context, rule GroupingRule) (bool, error)
	RemoveGrouping(ctx context.Context, rule GroupingRule) (bool, error)
}

// Store owns the current policy snapshot. Reads are lock-free; mutations are
// serialized, persisted to the backend first and then published by swapping
// in a new snapshot.
type Store struct {
	backend    Backend
	combinator Combinator

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store over backend. Snapshot returns nil until Load succeeds.
func NewStore(backend Backend, combinator Combinator) (*Store, error) {
	if backend == nil {
		return nil, errors.New("policy backend is required")
	}
	if combinator == nil {
		combinator = AllowOverrides{}
	}
	return &Store{backend: backend, combinator: combinator}, nil
}

// Snapshot returns the current snapshot, or nil if the store has never been loaded.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Load reads every rule from the backend and publishes a fresh snapshot.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	perms, groups, err := s.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrStoreUnavailable, err)
	}

	snap := NewSnapshot(perms, groups, s.combinator)
	s.current.Store(snap)

	np, ng := snap.Counts()
	logging.Debug().
		Int("permissions", np).
		Int("groupings", ng).
		Str("combinator", s.combinator.Name()).
		Msg("Policy snapshot loaded")
	return nil
}

// AddPermission persists rule and publishes a snapshot containing it.
func (s *Store) AddPermission(ctx context.Context, rule PermissionRule) (bool, error) {
	rule = rule.Normalize()
	if err := rule.Validate(); err != nil {
		return false, err
	}
	return s.mutate(ctx, "add permission",
		func() (bool, error) { return s.backend.AddPermission(ctx, rule) },
		func(cur *Snapshot) *Snapshot { return cur.withPermission(rule, true) })
}

// RemovePermission deletes rule and publishes a snapshot without it.
func (s *Store) RemovePermission(ctx context.Context, rule PermissionRule) (bool, error) {
	rule = rule.Normalize()
	if err := rule.Validate(); err != nil {
		return false, err
	}
	return s.mutate(ctx, "remove permission",
		func() (bool, error) { return s.backend.RemovePermission(ctx, rule) },
		func(cur *Snapshot) *Snapshot { return cur.withPermission(rule, false) })
}

// AddGrouping persists rule and publishes a snapshot containing it.
func (s *Store) AddGrouping(ctx context.Context, rule GroupingRule) (bool, error) {
	if err := rule.Validate(); err != nil {
		return false, err
	}
	return s.mutate(ctx, "add grouping",
		func() (bool, error) { return s.backend.AddGrouping(ctx, rule) },
		func(cur *Snapshot) *Snapshot { return cur.withGrouping(rule, true) })
}

// RemoveGrouping deletes rule and publishes a snapshot without it.
func (s *Store) RemoveGrouping(ctx context.Context, rule GroupingRule) (bool, error) {
	if err := rule.Validate(); err != nil {
		return false, err
	}
	return s.mutate(ctx, "remove grouping",
		func() (bool, error) { return s.backend.RemoveGrouping(ctx, rule) },
		func(cur *Snapshot) *Snapshot { return cur.withGrouping(rule, false) })
}

func (s *Store) mutate(ctx context.Context, op string, persist func() (bool, error), next func(*Snapshot) *Snapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	cur := s.current.Load()
	if cur == nil {
		return false, fmt.Errorf("%s: %w", op, ErrNoSnapshot)
	}

	changed, err := persist()
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}
	if changed {
		s.current.Store(next(cur))
	}
	return changed, nil
}

// Permissions returns the permission rules of tenant from the current snapshot.
func (s *Store) Permissions(tenant string) ([]PermissionRule, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap.Permissions(tenant), nil
}

// Groupings returns the grouping rules of tenant from the current snapshot.
func (s *Store) Groupings(tenant string) ([]GroupingRule, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap.Groupings(tenant), nil
}
