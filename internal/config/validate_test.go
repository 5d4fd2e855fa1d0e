// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = testSecret
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with secret", func(*Config) {}, ""},
		{"ttl below range", func(c *Config) { c.Cache.TTL = 9 * time.Second }, "CACHE_TTL"},
		{"ttl above range", func(c *Config) { c.Cache.TTL = 31 * time.Second }, "CACHE_TTL"},
		{"ttl lower bound", func(c *Config) { c.Cache.TTL = 10 * time.Second }, ""},
		{"ttl upper bound", func(c *Config) { c.Cache.TTL = 30 * time.Second }, ""},
		{"cache disabled ignores ttl", func(c *Config) { c.Cache.Backend = "none"; c.Cache.TTL = 0 }, ""},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "CACHE_BACKEND"},
		{"redis cache without url", func(c *Config) { c.Cache.Backend = "redis" }, "REDIS_URL"},
		{"redis cache bad scheme", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Redis.URL = "http://localhost:6379"
		}, "scheme"},
		{"redis cache valid", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Redis.URL = "redis://localhost:6379/0"
		}, ""},
		{"version redis without url", func(c *Config) { c.Version.RedisEnabled = true }, "REDIS_URL"},
		{"badger policy without path", func(c *Config) { c.Policy.Backend = "badger"; c.Policy.Path = "" }, "POLICY_PATH"},
		{"batch larger than buffer", func(c *Config) { c.Audit.BatchSize = 2000 }, "AUDIT_BATCH_SIZE"},
		{"retention zero", func(c *Config) { c.Audit.RetentionDays = 0 }, "AUDIT_RETENTION_DAYS"},
		{"duckdb without path", func(c *Config) { c.Audit.Store = "duckdb"; c.Audit.DuckDBPath = "" }, "AUDIT_DUCKDB_PATH"},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "JWT_SECRET"},
		{"header mode needs no secret", func(c *Config) { c.Auth.Mode = "header"; c.Auth.JWTSecret = "" }, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", got)
	}
}
