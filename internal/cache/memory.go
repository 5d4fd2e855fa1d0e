// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tomtom215/tenantguard/internal/metrics"
)

// DefaultMaxEntries bounds the in-memory backend when no size is configured.
const DefaultMaxEntries = 10000

// MemoryCache is a bounded LRU with per-entry TTL for single-instance deployments.
type MemoryCache struct {
	lru *lru.LRU[string, bool]
	counters
}

// NewMemoryCache creates an in-memory cache holding at most maxEntries decisions for ttl.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{lru: lru.NewLRU[string, bool](maxEntries, nil, ttl)}
}

// Name implements Cache.
func (c *MemoryCache) Name() string { return "memory" }

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key Key) (bool, bool) {
	allowed, ok := c.lru.Get(key.String())
	if !ok {
		c.misses.Add(1)
		metrics.AuthzCacheMissesTotal.WithLabelValues("memory").Inc()
		return false, false
	}
	c.hits.Add(1)
	metrics.AuthzCacheHitsTotal.WithLabelValues("memory").Inc()
	return allowed, true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key Key, allowed bool) {
	c.lru.Add(key.String(), allowed)
	metrics.AuthzCacheSize.WithLabelValues("memory").Set(float64(c.lru.Len()))
}

// InvalidateTenant implements Cache.
func (c *MemoryCache) InvalidateTenant(_ context.Context, tenant string) error {
	prefix := TenantPrefix(tenant)
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	metrics.AuthzCacheInvalidationsTotal.WithLabelValues("memory").Inc()
	metrics.AuthzCacheSize.WithLabelValues("memory").Set(float64(c.lru.Len()))
	return nil
}

// Stats implements Cache.
func (c *MemoryCache) Stats() Stats { return c.stats() }

// Len returns the number of entries, including expired ones not yet purged.
func (c *MemoryCache) Len() int { return c.lru.Len() }
