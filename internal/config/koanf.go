// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tenantguard/config.yaml",
	"/etc/tenantguard/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These are applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			Timeout:           30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 1000,
			RateLimitWindow:   time.Minute,
		},
		Policy: PolicyConfig{
			Backend:         "memory",
			Path:            "/data/policy",
			RefreshInterval: 5 * time.Second,
		},
		Version: VersionConfig{
			Backend:      "memory",
			Path:         "/data/versions",
			RedisEnabled: false,
			RedisTimeout: 100 * time.Millisecond,
			RedisTTL:     time.Hour,
		},
		Cache: CacheConfig{
			Backend:            "memory",
			TTL:                15 * time.Second,
			MaxEntries:         10000,
			IncludeUserVersion: false,
			RedisTimeout:       25 * time.Millisecond,
		},
		Audit: AuditConfig{
			Store:           "memory",
			DuckDBPath:      "/data/audit.duckdb",
			BufferSize:      1000,
			BatchSize:       100,
			FlushInterval:   time.Second,
			WriteTimeout:    5 * time.Second,
			RetentionDays:   90,
			CleanupInterval: 24 * time.Hour,
			SensitivePatterns: []string{
				"/api/v1/admin/**",
			},
		},
		Redis: RedisConfig{
			URL:            "",
			ConnectTimeout: 5 * time.Second,
			RetryAttempts:  3,
			RetryInterval:  time.Second,
		},
		Auth: AuthConfig{
			Mode:                 "jwt",
			JWTSecret:            "",
			EnforceTokenVersions: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File: optional YAML file
//  3. Environment Variables: override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// CACHE_TTL -> cache.ttl, REDIS_URL -> redis.url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"audit.sensitive_patterns",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	"policy_backend":          "policy.backend",
	"policy_path":             "policy.path",
	"policy_seed_file":        "policy.seed_file",
	"policy_refresh_interval": "policy.refresh_interval",
	"policy_deny_overrides":   "policy.deny_overrides",

	"version_backend":       "version.backend",
	"version_path":          "version.path",
	"version_redis_enabled": "version.redis_enabled",
	"version_redis_timeout": "version.redis_timeout",
	"version_redis_ttl":     "version.redis_ttl",

	"cache_backend":              "cache.backend",
	"cache_ttl":                  "cache.ttl",
	"cache_max_entries":          "cache.max_entries",
	"cache_include_user_version": "cache.include_user_version",
	"cache_redis_timeout":        "cache.redis_timeout",

	"audit_store":              "audit.store",
	"audit_duckdb_path":        "audit.duckdb_path",
	"audit_buffer_size":        "audit.buffer_size",
	"audit_batch_size":         "audit.batch_size",
	"audit_flush_interval":     "audit.flush_interval",
	"audit_write_timeout":      "audit.write_timeout",
	"audit_retention_days":     "audit.retention_days",
	"audit_cleanup_interval":   "audit.cleanup_interval",
	"audit_sensitive_patterns": "audit.sensitive_patterns",

	"redis_url":             "redis.url",
	"redis_connect_timeout": "redis.connect_timeout",
	"redis_retry_attempts":  "redis.retry_attempts",
	"redis_retry_interval":  "redis.retry_interval",

	"auth_mode":                   "auth.mode",
	"jwt_secret":                  "auth.jwt_secret",
	"auth_enforce_token_versions": "auth.enforce_token_versions",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - CACHE_TTL -> cache.ttl
//   - JWT_SECRET -> auth.jwt_secret
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
