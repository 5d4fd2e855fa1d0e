// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Decision cache TTL bounds. Entries outliving MaxCacheTTL would widen the
// staleness window for revocations that do not bump a version.
const (
	MinCacheTTL = 10 * time.Second
	MaxCacheTTL = 30 * time.Second
)

var (
	validLogLevels = map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	validLogFormats = map[string]bool{"json": true, "console": true}

	validStoreBackends = map[string]bool{"memory": true, "badger": true}
	validCacheBackends = map[string]bool{"memory": true, "redis": true, "none": true}
	validAuditStores   = map[string]bool{"memory": true, "duckdb": true}
	validAuthModes     = map[string]bool{"jwt": true, "header": true}
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateVersion(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validatePolicy() error {
	if !validStoreBackends[c.Policy.Backend] {
		return fmt.Errorf("POLICY_BACKEND must be one of memory, badger, got %q", c.Policy.Backend)
	}
	if c.Policy.Backend == "badger" && c.Policy.Path == "" {
		return fmt.Errorf("POLICY_PATH is required when POLICY_BACKEND=badger")
	}
	if c.Policy.RefreshInterval < 0 {
		return fmt.Errorf("POLICY_REFRESH_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateVersion() error {
	if !validStoreBackends[c.Version.Backend] {
		return fmt.Errorf("VERSION_BACKEND must be one of memory, badger, got %q", c.Version.Backend)
	}
	if c.Version.Backend == "badger" && c.Version.Path == "" {
		return fmt.Errorf("VERSION_PATH is required when VERSION_BACKEND=badger")
	}
	if c.Version.RedisEnabled {
		if c.Version.RedisTimeout <= 0 {
			return fmt.Errorf("VERSION_REDIS_TIMEOUT must be positive")
		}
		if c.Version.RedisTTL <= 0 {
			return fmt.Errorf("VERSION_REDIS_TTL must be positive")
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	if !validCacheBackends[c.Cache.Backend] {
		return fmt.Errorf("CACHE_BACKEND must be one of memory, redis, none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "none" {
		return nil
	}
	if c.Cache.TTL < MinCacheTTL || c.Cache.TTL > MaxCacheTTL {
		return fmt.Errorf("CACHE_TTL must be between %s and %s, got %s", MinCacheTTL, MaxCacheTTL, c.Cache.TTL)
	}
	if c.Cache.Backend == "memory" && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisTimeout <= 0 {
		return fmt.Errorf("CACHE_REDIS_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !validAuditStores[c.Audit.Store] {
		return fmt.Errorf("AUDIT_STORE must be one of memory, duckdb, got %q", c.Audit.Store)
	}
	if c.Audit.Store == "duckdb" && c.Audit.DuckDBPath == "" {
		return fmt.Errorf("AUDIT_DUCKDB_PATH is required when AUDIT_STORE=duckdb")
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be positive")
	}
	if c.Audit.BatchSize <= 0 || c.Audit.BatchSize > c.Audit.BufferSize {
		return fmt.Errorf("AUDIT_BATCH_SIZE must be between 1 and AUDIT_BUFFER_SIZE")
	}
	if c.Audit.FlushInterval <= 0 {
		return fmt.Errorf("AUDIT_FLUSH_INTERVAL must be positive")
	}
	if c.Audit.WriteTimeout <= 0 {
		return fmt.Errorf("AUDIT_WRITE_TIMEOUT must be positive")
	}
	if c.Audit.RetentionDays < 1 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be at least 1")
	}
	if c.Audit.CleanupInterval <= 0 {
		return fmt.Errorf("AUDIT_CLEANUP_INTERVAL must be positive")
	}
	return nil
}

// redisRequired reports whether any component depends on the shared redis connection.
func (c *Config) redisRequired() bool {
	return c.Cache.Backend == "redis" || c.Version.RedisEnabled
}

func (c *Config) validateRedis() error {
	if !c.redisRequired() {
		return nil
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis or VERSION_REDIS_ENABLED=true")
	}
	u, err := url.Parse(c.Redis.URL)
	if err != nil {
		return fmt.Errorf("REDIS_URL failed to parse: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return fmt.Errorf("REDIS_URL scheme must be redis or rediss, got: %s", u.Scheme)
	}
	if c.Redis.ConnectTimeout <= 0 {
		return fmt.Errorf("REDIS_CONNECT_TIMEOUT must be positive")
	}
	if c.Redis.RetryAttempts < 1 {
		return fmt.Errorf("REDIS_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !validAuthModes[c.Auth.Mode] {
		return fmt.Errorf("AUTH_MODE must be one of jwt, header, got %q", c.Auth.Mode)
	}
	if c.Auth.Mode == "jwt" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
