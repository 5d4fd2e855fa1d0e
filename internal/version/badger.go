// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package version

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage
const (
	tenantKeyPrefix = "version:tenant:"
	userKeyPrefix   = "version:user:"
)

// maxBumpRetries bounds optimistic retries when concurrent bumps conflict.
const maxBumpRetries = 16

// BadgerStore persists counters in BadgerDB as 8-byte big-endian integers.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a store over an open BadgerDB.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// TenantVersion implements Store.
func (s *BadgerStore) TenantVersion(ctx context.Context, tenantID string) (int64, error) {
	return s.get(ctx, tenantKeyPrefix, tenantID)
}

// UserVersion implements Store.
func (s *BadgerStore) UserVersion(ctx context.Context, userID string) (int64, error) {
	return s.get(ctx, userKeyPrefix, userID)
}

// BumpTenant implements Store.
func (s *BadgerStore) BumpTenant(ctx context.Context, tenantID string) (int64, error) {
	return s.bump(ctx, tenantKeyPrefix, tenantID)
}

// BumpUser implements Store.
func (s *BadgerStore) BumpUser(ctx context.Context, userID string) (int64, error) {
	return s.bump(ctx, userKeyPrefix, userID)
}

func readCounter(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return InitialVersion, nil
	}
	if err != nil {
		return 0, err
	}

	var v int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt version value of %d bytes", len(val))
		}
		v = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return v, err
}

func (s *BadgerStore) get(ctx context.Context, prefix, id string) (int64, error) {
	if id == "" {
		return 0, ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var v int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		v, err = readCounter(txn, []byte(prefix+id))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: read %s%s: %w", ErrUnavailable, prefix, id, err)
	}
	return v, nil
}

func (s *BadgerStore) bump(ctx context.Context, prefix, id string) (int64, error) {
	if id == "" {
		return 0, ErrEmptyID
	}
	key := []byte(prefix + id)

	for attempt := 0; attempt < maxBumpRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		var next int64
		err := s.db.Update(func(txn *badger.Txn) error {
			cur, err := readCounter(txn, key)
			if err != nil {
				return err
			}
			next = cur + 1
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, uint64(next))
			return txn.Set(key, buf)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: bump %s%s: %w", ErrUnavailable, prefix, id, err)
		}
		return next, nil
	}
	return 0, fmt.Errorf("%w: bump %s%s: too many conflicting writers", ErrUnavailable, prefix, id)
}
