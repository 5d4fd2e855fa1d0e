// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

// Package cache implements the authorization decision cache.
//
// Entries are keyed by tenant, policy version, hashed subject, hashed resource
// and action. Because the policy version is part of the key, bumping a tenant's
// version makes every earlier entry unreachable without deleting anything; the
// TTL bounds staleness for changes that do not bump a version and caps memory
// spent on unreachable entries.
//
// Backends never return errors to the caller: a failing backend is reported as
// a miss so the request falls through to direct enforcement.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/tenantguard/internal/config"
)

// KeyPrefix is the namespace of every decision cache key.
const KeyPrefix = "authz:decision:"

// ErrBackendUnavailable classifies decision cache backend failures.
var ErrBackendUnavailable = errors.New("decision cache backend unavailable")

// Key identifies one cached decision. UserVersion is only part of the key
// when it is non-zero.
type Key struct {
	Tenant        string
	PolicyVersion int64
	UserVersion   int64
	Subject       string
	Resource      string
	Action        string
}

// String renders the key as
//
//	authz:decision:{tenant}:{policy_version}:{subject_hash}:{resource_hash}:{action}
//
// or, when UserVersion is set,
//
//	authz:decision:{tenant}:{policy_version}:u{user_version}:{subject_hash}:{resource_hash}:{action}
//
// Hashes are the first 128 bits of SHA-256, hex encoded. They keep keys short,
// not secret.
func (k Key) String() string {
	var b strings.Builder
	b.Grow(len(KeyPrefix) + len(k.Tenant) + len(k.Action) + 100)
	b.WriteString(TenantPrefix(k.Tenant))
	b.WriteString(strconv.FormatInt(k.PolicyVersion, 10))
	b.WriteByte(':')
	if k.UserVersion != 0 {
		b.WriteByte('u')
		b.WriteString(strconv.FormatInt(k.UserVersion, 10))
		b.WriteByte(':')
	}
	b.WriteString(hashID(k.Subject))
	b.WriteByte(':')
	b.WriteString(hashID(k.Resource))
	b.WriteByte(':')
	b.WriteString(k.Action)
	return b.String()
}

// TenantPrefix returns the key prefix shared by every entry of tenant.
func TenantPrefix(tenant string) string {
	return KeyPrefix + tenant + ":"
}

func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// Cache stores allow/deny decisions. Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the cached decision and whether one was found.
	Get(ctx context.Context, key Key) (allowed bool, found bool)
	// Set caches a decision for the configured TTL.
	Set(ctx context.Context, key Key, allowed bool)
	// InvalidateTenant removes every entry of tenant.
	InvalidateTenant(ctx context.Context, tenant string) error
	// Stats reports hit and miss counts since creation.
	Stats() Stats
	// Name identifies the backend in logs and metrics.
	Name() string
}

// Stats summarizes cache efficiency.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// counters tracks hits and misses for Stats.
type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) stats() Stats {
	h, m := c.hits.Load(), c.misses.Load()
	s := Stats{Hits: h, Misses: m}
	if total := h + m; total > 0 {
		s.HitRate = float64(h) / float64(total)
	}
	return s
}

// New builds the backend selected by cfg. rdb is required for the redis backend.
func New(cfg config.CacheConfig, rdb redis.UniversalClient) (Cache, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(cfg.MaxEntries, cfg.TTL), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis client is required for the redis decision cache")
		}
		return NewRedisCache(rdb, RedisOptions{TTL: cfg.TTL, Timeout: cfg.RedisTimeout}), nil
	case "none", "":
		return NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown decision cache backend %q", cfg.Backend)
	}
}

// DefaultTTL is the decision lifetime used when none is configured.
const DefaultTTL = 15 * time.Second
