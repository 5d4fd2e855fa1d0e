// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package policy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func newTestBadgerDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func backends(t *testing.T) map[string]Backend {
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"badger": NewBadgerBackend(newTestBadgerDB(t)),
	}
}

func newLoadedStore(t *testing.T, b Backend) *Store {
	t.Helper()
	s, err := NewStore(b, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestNewStoreRequiresBackend(t *testing.T) {
	if _, err := NewStore(nil, nil); err == nil {
		t.Error("expected error for nil backend")
	}
}

func TestStoreSnapshotNilBeforeLoad(t *testing.T) {
	s, err := NewStore(NewMemoryBackend(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Snapshot() != nil {
		t.Error("snapshot should be nil before Load")
	}
	if _, err := s.AddPermission(context.Background(), allow("a", "t", "/r", "read")); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("AddPermission before Load: got %v, want ErrNoSnapshot", err)
	}
}

func TestStoreMutations(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newLoadedStore(t, b)

			before := s.Snapshot()

			added, err := s.AddPermission(ctx, allow("admin", "acme", "/users", "write"))
			if err != nil || !added {
				t.Fatalf("AddPermission() = %v, %v; want true, nil", added, err)
			}
			added, err = s.AddGrouping(ctx, member("alice", "admin", "acme"))
			if err != nil || !added {
				t.Fatalf("AddGrouping() = %v, %v; want true, nil", added, err)
			}

			assertEvaluate(t, s.Snapshot(), Request{"alice", "acme", "/users", "write"}, true)
			// published snapshots are immutable
			assertEvaluate(t, before, Request{"alice", "acme", "/users", "write"}, false)

			// duplicate add is a no-op
			added, err = s.AddPermission(ctx, allow("admin", "acme", "/users", "write"))
			if err != nil || added {
				t.Fatalf("duplicate AddPermission() = %v, %v; want false, nil", added, err)
			}
			if np, _ := s.Snapshot().Counts(); np != 1 {
				t.Errorf("permission count = %d after duplicate add, want 1", np)
			}

			removed, err := s.RemoveGrouping(ctx, member("alice", "admin", "acme"))
			if err != nil || !removed {
				t.Fatalf("RemoveGrouping() = %v, %v; want true, nil", removed, err)
			}
			assertEvaluate(t, s.Snapshot(), Request{"alice", "acme", "/users", "write"}, false)

			removed, err = s.RemoveGrouping(ctx, member("alice", "admin", "acme"))
			if err != nil || removed {
				t.Fatalf("second RemoveGrouping() = %v, %v; want false, nil", removed, err)
			}

			removed, err = s.RemovePermission(ctx, allow("admin", "acme", "/users", "write"))
			if err != nil || !removed {
				t.Fatalf("RemovePermission() = %v, %v; want true, nil", removed, err)
			}
			if np, ng := s.Snapshot().Counts(); np != 0 || ng != 0 {
				t.Errorf("Counts() = %d, %d after removals, want 0, 0", np, ng)
			}
		})
	}
}

func TestStoreReloadFromBackend(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newLoadedStore(t, b)
			if _, err := s.AddPermission(ctx, allow("admin", "acme", "/users", "write")); err != nil {
				t.Fatal(err)
			}
			if _, err := s.AddGrouping(ctx, member("alice", "admin", "acme")); err != nil {
				t.Fatal(err)
			}

			// A second store over the same backend sees the persisted rules.
			other := newLoadedStore(t, b)
			assertEvaluate(t, other.Snapshot(), Request{"alice", "acme", "/users", "write"}, true)
		})
	}
}

func TestStoreRejectsInvalidRules(t *testing.T) {
	s := newLoadedStore(t, NewMemoryBackend())
	ctx := context.Background()

	if _, err := s.AddPermission(ctx, PermissionRule{Subject: "a"}); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("AddPermission(invalid) = %v, want ErrInvalidRule", err)
	}
	if _, err := s.AddGrouping(ctx, GroupingRule{Subject: "a", Role: "a", Tenant: "t"}); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("AddGrouping(self-loop) = %v, want ErrInvalidRule", err)
	}
}

type failingBackend struct{ *MemoryBackend }

var errDisk = errors.New("disk on fire")

func (f *failingBackend) AddPermission(context.Context, PermissionRule) (bool, error) {
	return false, errDisk
}

func (f *failingBackend) LoadAll(context.Context) ([]PermissionRule, []GroupingRule, error) {
	return nil, nil, errDisk
}

func TestStoreBackendFailure(t *testing.T) {
	fb := &failingBackend{MemoryBackend: NewMemoryBackend()}
	s, err := NewStore(fb, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Load(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, errDisk) {
		t.Errorf("Load() error = %v, want ErrStoreUnavailable wrapping errDisk", err)
	}

	// Publish an empty snapshot manually to exercise the mutation path.
	s.current.Store(NewSnapshot(nil, nil, nil))
	_, err = s.AddPermission(context.Background(), allow("a", "t", "/r", "read"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("AddPermission() error = %v, want ErrStoreUnavailable", err)
	}
	if np, _ := s.Snapshot().Counts(); np != 0 {
		t.Error("failed persist must not publish the rule")
	}
}

func TestStoreConcurrentReadersDuringWrites(t *testing.T) {
	s := newLoadedStore(t, NewMemoryBackend())
	ctx := context.Background()
	if _, err := s.AddGrouping(ctx, member("alice", "admin", "acme")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := s.Snapshot().Evaluate(Request{"alice", "acme", "/users", "write"}); err != nil {
					t.Errorf("Evaluate() error = %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		rule := allow("admin", "acme", "/users", "write")
		if _, err := s.AddPermission(ctx, rule); err != nil {
			t.Fatal(err)
		}
		if _, err := s.RemovePermission(ctx, rule); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestStoreListingIsTenantScoped(t *testing.T) {
	s, err := NewStore(NewMemoryBackend(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Permissions("acme"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Permissions before Load: got %v, want ErrNoSnapshot", err)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_, _ = s.AddPermission(ctx, allow("admin", "acme", "/users", "write"))
	_, _ = s.AddPermission(ctx, allow("admin", "beta", "/users", "write"))
	_, _ = s.AddGrouping(ctx, member("alice", "admin", "acme"))

	perms, err := s.Permissions("acme")
	if err != nil || len(perms) != 1 || perms[0].Tenant != "acme" {
		t.Errorf("Permissions(acme) = %v, %v", perms, err)
	}
	groups, err := s.Groupings("beta")
	if err != nil || len(groups) != 0 {
		t.Errorf("Groupings(beta) = %v, %v", groups, err)
	}
}
