// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

//go:build integration

package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/tenantguard/internal/cache"
	"github.com/tomtom215/tenantguard/internal/config"
	"github.com/tomtom215/tenantguard/internal/redisclient"
	"github.com/tomtom215/tenantguard/internal/version"
)

func connectRedis(t *testing.T) *redis.Client {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	rc, err := NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("NewRedisContainer() error = %v", err)
	}
	t.Cleanup(func() { CleanupContainer(context.Background(), t, rc) })

	rdb, err := redisclient.Connect(ctx, config.RedisConfig{
		URL:            rc.URL,
		ConnectTimeout: 10 * time.Second,
		RetryAttempts:  3,
		RetryInterval:  500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisCacheIntegration(t *testing.T) {
	rdb := connectRedis(t)
	ctx := context.Background()
	c := cache.NewRedisCache(rdb, cache.RedisOptions{TTL: time.Minute, Timeout: time.Second})

	acme := cache.Key{Tenant: "acme", PolicyVersion: 1, Subject: "alice", Resource: "/reports/q1", Action: "read"}
	globex := cache.Key{Tenant: "globex", PolicyVersion: 1, Subject: "alice", Resource: "/reports/q1", Action: "read"}
	c.Set(ctx, acme, true)
	c.Set(ctx, globex, false)

	if allowed, ok := c.Get(ctx, acme); !ok || !allowed {
		t.Fatalf("Get(acme) = %v, %v; want true, true", allowed, ok)
	}
	if allowed, ok := c.Get(ctx, globex); !ok || allowed {
		t.Fatalf("Get(globex) = %v, %v; want false, true", allowed, ok)
	}

	if err := c.InvalidateTenant(ctx, "acme"); err != nil {
		t.Fatalf("InvalidateTenant() error = %v", err)
	}
	if _, ok := c.Get(ctx, acme); ok {
		t.Error("acme entry survived invalidation")
	}
	if _, ok := c.Get(ctx, globex); !ok {
		t.Error("globex entry was removed by acme invalidation")
	}
}

func TestCachedVersionStoreIntegration(t *testing.T) {
	rdb := connectRedis(t)
	ctx := context.Background()

	backend := version.NewMemoryStore()
	store := version.NewCachedStore(backend, rdb, time.Second, time.Minute)

	v, err := store.TenantVersion(ctx, "acme")
	if err != nil || v != 1 {
		t.Fatalf("TenantVersion() = %d, %v; want 1, nil", v, err)
	}

	if _, err := store.BumpTenant(ctx, "acme"); err != nil {
		t.Fatalf("BumpTenant() error = %v", err)
	}
	if got, _ := rdb.Get(ctx, version.TenantKey("acme")).Int64(); got != 2 {
		t.Errorf("cached tenant version = %d, want 2", got)
	}

	// A second instance sharing redis sees the bump without touching the backend.
	peer := version.NewCachedStore(version.NewMemoryStore(), rdb, time.Second, time.Minute)
	if v, err := peer.TenantVersion(ctx, "acme"); err != nil || v != 2 {
		t.Errorf("peer TenantVersion() = %d, %v; want 2, nil", v, err)
	}
}
