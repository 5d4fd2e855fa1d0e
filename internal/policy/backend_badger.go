// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	permissionKeyPrefix = "policy:p:"
	groupingKeyPrefix   = "policy:g:"
)

// BadgerBackend stores rules in BadgerDB, one key per rule.
// Keys are policy:p:{tenant}:{rule id} and policy:g:{tenant}:{rule id}.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend creates a backend over an open BadgerDB.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func permissionKey(r PermissionRule) []byte {
	return []byte(permissionKeyPrefix + r.Tenant + ":" + r.ID())
}

func groupingKey(g GroupingRule) []byte {
	return []byte(groupingKeyPrefix + g.Tenant + ":" + g.ID())
}

// LoadAll implements Backend.
func (b *BadgerBackend) LoadAll(ctx context.Context) ([]PermissionRule, []GroupingRule, error) {
	var (
		perms  []PermissionRule
		groups []GroupingRule
	)

	err := b.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(ctx, txn, permissionKeyPrefix, func(val []byte) error {
			var r PermissionRule
			if err := json.Unmarshal(val, &r); err != nil {
				return fmt.Errorf("decode permission rule: %w", err)
			}
			perms = append(perms, r)
			return nil
		}); err != nil {
			return err
		}

		return scanPrefix(ctx, txn, groupingKeyPrefix, func(val []byte) error {
			var g GroupingRule
			if err := json.Unmarshal(val, &g); err != nil {
				return fmt.Errorf("decode grouping rule: %w", err)
			}
			groups = append(groups, g)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return perms, groups, nil
}

func scanPrefix(ctx context.Context, txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// AddPermission implements Backend.
func (b *BadgerBackend) AddPermission(_ context.Context, rule PermissionRule) (bool, error) {
	return b.put(permissionKey(rule), rule)
}

// RemovePermission implements Backend.
func (b *BadgerBackend) RemovePermission(_ context.Context, rule PermissionRule) (bool, error) {
	return b.remove(permissionKey(rule))
}

// AddGrouping implements Backend.
func (b *BadgerBackend) AddGrouping(_ context.Context, rule GroupingRule) (bool, error) {
	return b.put(groupingKey(rule), rule)
}

// RemoveGrouping implements Backend.
func (b *BadgerBackend) RemoveGrouping(_ context.Context, rule GroupingRule) (bool, error) {
	return b.remove(groupingKey(rule))
}

func (b *BadgerBackend) put(key []byte, v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal rule: %w", err)
	}

	added := false
	err = b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get rule: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set rule: %w", err)
		}
		added = true
		return nil
	})
	return added, err
}

func (b *BadgerBackend) remove(key []byte) (bool, error) {
	removed := false
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get rule: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete rule: %w", err)
		}
		removed = true
		return nil
	})
	return removed, err
}
