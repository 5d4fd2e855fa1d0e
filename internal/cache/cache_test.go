// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package cache

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/tenantguard/internal/config"
)

func testKey(tenant string, pv int64) Key {
	return Key{
		Tenant:        tenant,
		PolicyVersion: pv,
		Subject:       "alice",
		Resource:      "/api/v1/reports/42",
		Action:        "GET",
	}
}

func TestKeyString(t *testing.T) {
	k := testKey("acme", 7)
	s := k.String()

	assert.Regexp(t, regexp.MustCompile(`^authz:decision:acme:7:[0-9a-f]{32}:[0-9a-f]{32}:GET$`), s)
	assert.NotContains(t, s, "alice")
	assert.NotContains(t, s, "/api/v1/reports/42")
	assert.True(t, strings.HasPrefix(s, TenantPrefix("acme")))

	k.UserVersion = 3
	assert.Regexp(t, regexp.MustCompile(`^authz:decision:acme:7:u3:[0-9a-f]{32}:[0-9a-f]{32}:GET$`), k.String())
}

func TestKeyStringDistinguishesFields(t *testing.T) {
	base := testKey("acme", 1)
	variants := []Key{
		{Tenant: "globex", PolicyVersion: 1, Subject: base.Subject, Resource: base.Resource, Action: base.Action},
		{Tenant: "acme", PolicyVersion: 2, Subject: base.Subject, Resource: base.Resource, Action: base.Action},
		{Tenant: "acme", PolicyVersion: 1, Subject: "bob", Resource: base.Resource, Action: base.Action},
		{Tenant: "acme", PolicyVersion: 1, Subject: base.Subject, Resource: "/other", Action: base.Action},
		{Tenant: "acme", PolicyVersion: 1, Subject: base.Subject, Resource: base.Resource, Action: "POST"},
		{Tenant: "acme", PolicyVersion: 1, UserVersion: 1, Subject: base.Subject, Resource: base.Resource, Action: base.Action},
	}
	for _, v := range variants {
		assert.NotEqual(t, base.String(), v.String(), "%+v", v)
	}
}

func TestStatsHitRate(t *testing.T) {
	var c counters
	assert.Equal(t, Stats{}, c.stats())

	c.hits.Add(3)
	c.misses.Add(1)
	assert.Equal(t, Stats{Hits: 3, Misses: 1, HitRate: 0.75}, c.stats())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CacheConfig
		want    string
		wantErr bool
	}{
		{name: "memory", cfg: config.CacheConfig{Backend: "memory", TTL: 15 * time.Second}, want: "memory"},
		{name: "none", cfg: config.CacheConfig{Backend: "none"}, want: "none"},
		{name: "empty", cfg: config.CacheConfig{}, want: "none"},
		{name: "redis without client", cfg: config.CacheConfig{Backend: "redis"}, wantErr: true},
		{name: "unknown", cfg: config.CacheConfig{Backend: "memcached"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestNoOp(t *testing.T) {
	ctx := context.Background()
	var c Cache = NoOp{}

	c.Set(ctx, testKey("acme", 1), true)
	_, found := c.Get(ctx, testKey("acme", 1))
	assert.False(t, found)
	assert.NoError(t, c.InvalidateTenant(ctx, "acme"))
	assert.Equal(t, Stats{}, c.Stats())
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Minute)

	_, found := c.Get(ctx, testKey("acme", 1))
	assert.False(t, found)

	c.Set(ctx, testKey("acme", 1), true)
	deny := testKey("acme", 1)
	deny.Action = "DELETE"
	c.Set(ctx, deny, false)

	allowed, found := c.Get(ctx, testKey("acme", 1))
	assert.True(t, found)
	assert.True(t, allowed)

	allowed, found = c.Get(ctx, deny)
	assert.True(t, found)
	assert.False(t, allowed)

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
}

func TestMemoryCacheVersionBumpMisses(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Minute)

	c.Set(ctx, testKey("acme", 1), true)
	_, found := c.Get(ctx, testKey("acme", 2))
	assert.False(t, found, "entry from an older policy version must not be served")
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, 50*time.Millisecond)

	c.Set(ctx, testKey("acme", 1), true)
	_, found := c.Get(ctx, testKey("acme", 1))
	require.True(t, found)

	time.Sleep(120 * time.Millisecond)
	_, found = c.Get(ctx, testKey("acme", 1))
	assert.False(t, found)
}

func TestMemoryCacheEvictsBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	for pv := int64(1); pv <= 3; pv++ {
		c.Set(ctx, testKey("acme", pv), true)
	}
	assert.Equal(t, 2, c.Len())
	_, found := c.Get(ctx, testKey("acme", 1))
	assert.False(t, found)
}

func TestMemoryCacheInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Minute)

	c.Set(ctx, testKey("acme", 1), true)
	c.Set(ctx, testKey("acme", 2), true)
	c.Set(ctx, testKey("acme-eu", 1), true)
	c.Set(ctx, testKey("globex", 1), true)

	require.NoError(t, c.InvalidateTenant(ctx, "acme"))

	_, found := c.Get(ctx, testKey("acme", 1))
	assert.False(t, found)
	_, found = c.Get(ctx, testKey("acme", 2))
	assert.False(t, found)
	_, found = c.Get(ctx, testKey("acme-eu", 1))
	assert.True(t, found, "tenant prefix must not match a longer tenant id")
	_, found = c.Get(ctx, testKey("globex", 1))
	assert.True(t, found)
}
