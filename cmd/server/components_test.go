// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/config"
	"github.com/tomtom215/tenantguard/internal/policy"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second},
		Policy: config.PolicyConfig{Backend: "memory"},
		Version: config.VersionConfig{
			Backend:      "memory",
			RedisTimeout: 100 * time.Millisecond,
			RedisTTL:     time.Minute,
		},
		Cache: config.CacheConfig{Backend: "memory", TTL: 15 * time.Second, MaxEntries: 100},
		Audit: config.AuditConfig{
			Store:         "memory",
			BufferSize:    10,
			BatchSize:     10,
			FlushInterval: 10 * time.Millisecond,
			WriteTimeout:  time.Second,
		},
		Redis: config.RedisConfig{ConnectTimeout: time.Second, RetryAttempts: 1, RetryInterval: 10 * time.Millisecond},
		Auth:  config.AuthConfig{Mode: "header"},
	}
}

func build(t *testing.T, cfg *config.Config) *components {
	t.Helper()
	c, err := buildComponents(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildComponents() error = %v", err)
	}
	t.Cleanup(c.close)
	return c
}

func TestBuildComponentsSeedsPolicy(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "policy.csv")
	content := "p, admin, acme, /reports, read, allow\ng, alice, admin, acme\n"
	if err := os.WriteFile(seed, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Policy.SeedFile = seed
	c := build(t, cfg)

	ctx := context.Background()
	if d := c.gate.Check(ctx, auth.Identity{Subject: "alice", Tenant: "acme"}, "/reports", "read"); !d.Allowed {
		t.Errorf("seeded permission denied: %+v", d)
	}
	if d := c.gate.Check(ctx, auth.Identity{Subject: "alice", Tenant: "globex"}, "/reports", "read"); d.Allowed {
		t.Error("seeded permission leaked into another tenant")
	}
	if err := c.checks["policy"](ctx); err != nil {
		t.Errorf("policy readiness check = %v", err)
	}
	if c.cache.Name() != "memory" {
		t.Errorf("cache = %q, want memory", c.cache.Name())
	}
}

func TestBuildComponentsBadgerPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Policy.Backend = "badger"
	cfg.Policy.Path = dir
	cfg.Version.Backend = "badger"
	cfg.Version.Path = dir

	ctx := context.Background()
	actor := auth.Identity{Subject: "root", Tenant: "acme"}
	rule := policy.PermissionRule{Subject: "admin", Tenant: "acme", Resource: "/reports", Action: "read"}

	first, err := buildComponents(ctx, cfg)
	if err != nil {
		t.Fatalf("buildComponents() error = %v", err)
	}
	if len(first.badgers) != 1 {
		t.Errorf("opened %d badger databases for one path, want 1", len(first.badgers))
	}
	res, err := first.admin.AddPermission(ctx, actor, rule)
	if err != nil {
		t.Fatalf("AddPermission() error = %v", err)
	}
	if res.TenantVersion != 2 {
		t.Errorf("tenant version after first mutation = %d, want 2", res.TenantVersion)
	}
	first.close()

	second := build(t, cfg)
	perms, err := second.admin.Permissions(actor)
	if err != nil {
		t.Fatalf("Permissions() error = %v", err)
	}
	if len(perms) != 1 || perms[0].Resource != "/reports" {
		t.Errorf("permissions after reopen = %+v", perms)
	}
	if v, err := second.versions.TenantVersion(ctx, "acme"); err != nil || v != 2 {
		t.Errorf("tenant version after reopen = %d, %v; want 2", v, err)
	}
}

func TestBuildComponentsRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisTimeout = 100 * time.Millisecond
	cfg.Version.RedisEnabled = true
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"

	c := build(t, cfg)
	if c.cache.Name() != "redis" {
		t.Errorf("cache = %q, want redis", c.cache.Name())
	}
	check, ok := c.checks["redis"]
	if !ok {
		t.Fatal("redis readiness check not registered")
	}
	if err := check(context.Background()); err != nil {
		t.Errorf("redis readiness check = %v", err)
	}

	if _, err := c.versions.BumpTenant(context.Background(), "acme"); err != nil {
		t.Fatalf("BumpTenant() error = %v", err)
	}
	if got, _ := mr.Get("authz:tenant:acme:v"); got != "2" {
		t.Errorf("cached tenant version = %q, want 2", got)
	}
}

func TestBuildComponentsRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	if _, err := buildComponents(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestBuildComponentsDuckDBAudit(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Store = "duckdb"
	cfg.Audit.DuckDBPath = filepath.Join(t.TempDir(), "audit.duckdb")

	c := build(t, cfg)
	check, ok := c.checks["audit_store"]
	if !ok {
		t.Fatal("audit store readiness check not registered")
	}
	if err := check(context.Background()); err != nil {
		t.Errorf("audit store readiness check = %v", err)
	}
}
