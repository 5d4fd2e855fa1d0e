// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

// Package config loads Tenantguard configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Policy  PolicyConfig  `koanf:"policy"`
	Version VersionConfig `koanf:"version"`
	Cache   CacheConfig   `koanf:"cache"`
	Audit   AuditConfig   `koanf:"audit"`
	Redis   RedisConfig   `koanf:"redis"`
	Auth    AuthConfig    `koanf:"auth"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
//   - CORS_ORIGINS: comma-separated allowed origins
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: per-IP limit on the authorize endpoint
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// PolicyConfig selects the policy store backend.
//
// Environment Variables:
//   - POLICY_BACKEND: memory or badger (default: memory)
//   - POLICY_PATH: badger directory
//   - POLICY_SEED_FILE: casbin CSV file loaded into an empty store at startup
//   - POLICY_REFRESH_INTERVAL: how often to reload the snapshot from a shared backend (0 disables)
//   - POLICY_DENY_OVERRIDES: honour explicit deny rules
type PolicyConfig struct {
	Backend         string        `koanf:"backend"`
	Path            string        `koanf:"path"`
	SeedFile        string        `koanf:"seed_file"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	DenyOverrides   bool          `koanf:"deny_overrides"`
}

// VersionConfig configures tenant and user authorization version counters.
//
// Environment Variables:
//   - VERSION_BACKEND: memory or badger (default: memory)
//   - VERSION_PATH: badger directory
//   - VERSION_REDIS_ENABLED: front the backend with a redis read-through cache
//   - VERSION_REDIS_TIMEOUT (default: 100ms), VERSION_REDIS_TTL (default: 1h)
type VersionConfig struct {
	Backend      string        `koanf:"backend"`
	Path         string        `koanf:"path"`
	RedisEnabled bool          `koanf:"redis_enabled"`
	RedisTimeout time.Duration `koanf:"redis_timeout"`
	RedisTTL     time.Duration `koanf:"redis_ttl"`
}

// CacheConfig configures the decision cache.
//
// Environment Variables:
//   - CACHE_BACKEND: memory, redis or none (default: memory)
//   - CACHE_TTL: entry lifetime, 10s to 30s (default: 15s)
//   - CACHE_MAX_ENTRIES: memory backend capacity (default: 10000)
//   - CACHE_INCLUDE_USER_VERSION: add the user authz version to cache keys
//   - CACHE_REDIS_TIMEOUT: per-operation timeout for the redis backend (default: 25ms)
type CacheConfig struct {
	Backend            string        `koanf:"backend"`
	TTL                time.Duration `koanf:"ttl"`
	MaxEntries         int           `koanf:"max_entries"`
	IncludeUserVersion bool          `koanf:"include_user_version"`
	RedisTimeout       time.Duration `koanf:"redis_timeout"`
}

// AuditConfig configures the asynchronous audit trail.
//
// Environment Variables:
//   - AUDIT_STORE: memory or duckdb (default: memory)
//   - AUDIT_DUCKDB_PATH: database file for the duckdb store
//   - AUDIT_BUFFER_SIZE (default: 1000), AUDIT_BATCH_SIZE (default: 100)
//   - AUDIT_FLUSH_INTERVAL (default: 1s), AUDIT_WRITE_TIMEOUT (default: 5s)
//   - AUDIT_RETENTION_DAYS (default: 90), AUDIT_CLEANUP_INTERVAL (default: 24h)
//   - AUDIT_SENSITIVE_PATTERNS: comma-separated resource globs whose allow decisions are logged
type AuditConfig struct {
	Store             string        `koanf:"store"`
	DuckDBPath        string        `koanf:"duckdb_path"`
	BufferSize        int           `koanf:"buffer_size"`
	BatchSize         int           `koanf:"batch_size"`
	FlushInterval     time.Duration `koanf:"flush_interval"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	RetentionDays     int           `koanf:"retention_days"`
	CleanupInterval   time.Duration `koanf:"cleanup_interval"`
	SensitivePatterns []string      `koanf:"sensitive_patterns"`
}

// RedisConfig holds the shared redis connection used by the distributed
// decision cache and the version cache.
//
// Environment Variables:
//   - REDIS_URL: redis://[user:pass@]host:port/db
//   - REDIS_CONNECT_TIMEOUT (default: 5s), REDIS_RETRY_ATTEMPTS (default: 3)
type RedisConfig struct {
	URL            string        `koanf:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	RetryAttempts  int           `koanf:"retry_attempts"`
	RetryInterval  time.Duration `koanf:"retry_interval"`
}

// AuthConfig configures how the caller identity is established at the boundary.
//
// Environment Variables:
//   - AUTH_MODE: jwt or header (default: jwt)
//   - JWT_SECRET: HMAC secret for bearer tokens (required when AUTH_MODE=jwt)
//   - AUTH_ENFORCE_TOKEN_VERSIONS: deny tokens issued before the latest authz version bump
type AuthConfig struct {
	Mode                 string `koanf:"mode"`
	JWTSecret            string `koanf:"jwt_secret"`
	EnforceTokenVersions bool   `koanf:"enforce_token_versions"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file and line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration in layers:
//  1. Built-in defaults
//  2. Config file (config.yaml if it exists, or the path in CONFIG_PATH)
//  3. Environment variables
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
