// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/tenantguard/internal/api"
	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/authz"
	"github.com/tomtom215/tenantguard/internal/cache"
	"github.com/tomtom215/tenantguard/internal/config"
	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/metrics"
	"github.com/tomtom215/tenantguard/internal/policy"
	"github.com/tomtom215/tenantguard/internal/redisclient"
	"github.com/tomtom215/tenantguard/internal/version"
)

// auditMemoryMaxLen caps the in-memory audit store.
const auditMemoryMaxLen = 100000

// components holds everything the HTTP layer and the supervisor tree need.
type components struct {
	policy      *policy.Store
	versions    version.Store
	cache       cache.Cache
	auditLogger *audit.Logger
	gate        *authz.Gate
	admin       *authz.AdminService
	checks      map[string]api.ReadinessCheck

	badgers map[string]*badger.DB
	closers []func() error
}

// buildComponents opens storage and wires the authorization core from cfg.
// On error everything opened so far is closed.
func buildComponents(ctx context.Context, cfg *config.Config) (c *components, err error) {
	c = &components{
		checks:  make(map[string]api.ReadinessCheck),
		badgers: make(map[string]*badger.DB),
	}
	defer func() {
		if err != nil {
			c.close()
			c = nil
		}
	}()

	rdb, err := c.connectRedis(ctx, cfg)
	if err != nil {
		return c, err
	}

	if c.policy, err = c.newPolicyStore(ctx, cfg.Policy); err != nil {
		return c, err
	}
	if c.versions, err = c.newVersionStore(cfg.Version, rdb); err != nil {
		return c, err
	}
	if c.cache, err = cache.New(cfg.Cache, rdb); err != nil {
		return c, fmt.Errorf("decision cache: %w", err)
	}

	auditStore, err := c.newAuditStore(ctx, cfg.Audit)
	if err != nil {
		return c, err
	}
	c.auditLogger = audit.NewLogger(auditStore, audit.Config{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		WriteTimeout:  cfg.Audit.WriteTimeout,
	})

	c.gate = authz.NewGate(
		authz.NewEnforcer(c.policy),
		c.versions,
		c.cache,
		c.auditLogger,
		audit.NewPolicy(cfg.Audit.SensitivePatterns),
		authz.Options{
			IncludeUserVersion:   cfg.Cache.IncludeUserVersion,
			EnforceTokenVersions: cfg.Auth.EnforceTokenVersions,
		},
	)
	c.admin = authz.NewAdminService(c.policy, c.versions, c.cache, c.auditLogger)

	store := c.policy
	c.checks["policy"] = func(context.Context) error {
		if store.Snapshot() == nil {
			return policy.ErrNoSnapshot
		}
		return nil
	}

	logging.Info().
		Str("policy_backend", cfg.Policy.Backend).
		Str("version_backend", cfg.Version.Backend).
		Bool("version_redis", cfg.Version.RedisEnabled).
		Str("cache_backend", c.cache.Name()).
		Bool("cache_include_user_version", cfg.Cache.IncludeUserVersion).
		Str("audit_store", cfg.Audit.Store).
		Msg("Authorization core initialized")
	return c, nil
}

// connectRedis returns nil when no component needs redis.
func (c *components) connectRedis(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.Cache.Backend != "redis" && !cfg.Version.RedisEnabled {
		return nil, nil
	}
	client, err := redisclient.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	c.closers = append(c.closers, client.Close)
	c.checks["redis"] = redisclient.Healthcheck(client)
	return client, nil
}

// openBadger opens path once and shares the handle between stores.
func (c *components) openBadger(path string) (*badger.DB, error) {
	if db, ok := c.badgers[path]; ok {
		return db, nil
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB at %s: %w", path, err)
	}
	c.badgers[path] = db
	c.closers = append(c.closers, db.Close)
	logging.Info().Str("path", path).Msg("BadgerDB opened")
	return db, nil
}

func (c *components) newPolicyStore(ctx context.Context, cfg config.PolicyConfig) (*policy.Store, error) {
	var backend policy.Backend
	switch cfg.Backend {
	case "badger":
		db, err := c.openBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		backend = policy.NewBadgerBackend(db)
	default:
		backend = policy.NewMemoryBackend()
	}

	var combinator policy.Combinator = policy.AllowOverrides{}
	if cfg.DenyOverrides {
		combinator = policy.DenyOverrides{}
	}

	store, err := policy.NewStore(backend, combinator)
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		n, err := policy.Seed(ctx, store, cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed policy from %s: %w", cfg.SeedFile, err)
		}
		if n > 0 {
			logging.Info().Int("rules", n).Str("file", cfg.SeedFile).Msg("Policy seeded")
		}
	}

	metrics.UpdatePolicyStats(store.Snapshot().Counts())
	return store, nil
}

func (c *components) newVersionStore(cfg config.VersionConfig, rdb redis.UniversalClient) (version.Store, error) {
	var store version.Store
	switch cfg.Backend {
	case "badger":
		db, err := c.openBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		store = version.NewBadgerStore(db)
	default:
		store = version.NewMemoryStore()
	}

	if cfg.RedisEnabled {
		if rdb == nil {
			return nil, errors.New("version redis cache enabled without a redis client")
		}
		store = version.NewCachedStore(store, rdb, cfg.RedisTimeout, cfg.RedisTTL)
	}
	return store, nil
}

func (c *components) newAuditStore(ctx context.Context, cfg config.AuditConfig) (audit.Store, error) {
	if cfg.Store != "duckdb" {
		return audit.NewMemoryStore(auditMemoryMaxLen), nil
	}

	db, err := sql.Open("duckdb", cfg.DuckDBPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %s: %w", cfg.DuckDBPath, err)
	}
	c.closers = append(c.closers, db.Close)

	store := audit.NewDuckDBStore(db)
	if err := store.CreateTable(ctx); err != nil {
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	c.checks["audit_store"] = db.PingContext
	return store, nil
}

// close releases storage in reverse order of opening.
func (c *components) close() {
	if c.auditLogger != nil {
		_ = c.auditLogger.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}
	c.closers = nil
}
