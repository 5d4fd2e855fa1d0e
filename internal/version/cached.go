// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package version

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/tenantguard/internal/logging"
)

// Default settings for the redis version cache.
const (
	DefaultRedisTimeout = 100 * time.Millisecond
	DefaultRedisTTL     = time.Hour
)

// CachedStore fronts a durable Store with a redis read-through cache.
//
// Keys are authz:tenant:{id}:v and authz:user:{id}:v. Redis is advisory: every
// redis failure falls back to the backend, and a bump whose cache write fails
// deletes the cached key so no reader keeps an outdated version for the TTL.
// Cache writes never lower a cached version.
type CachedStore struct {
	backend  Store
	rdb      redis.UniversalClient
	timeout  time.Duration
	ttl      time.Duration
	throttle *logging.Throttle
}

// NewCachedStore wraps backend. Zero timeout or ttl use the defaults.
func NewCachedStore(backend Store, rdb redis.UniversalClient, timeout, ttl time.Duration) *CachedStore {
	if timeout <= 0 {
		timeout = DefaultRedisTimeout
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &CachedStore{
		backend:  backend,
		rdb:      rdb,
		timeout:  timeout,
		ttl:      ttl,
		throttle: logging.NewThrottle(10*time.Second, 1),
	}
}

// TenantKey returns the redis key caching tenantID's version.
func TenantKey(tenantID string) string { return "authz:tenant:" + tenantID + ":v" }

// UserKey returns the redis key caching userID's version.
func UserKey(userID string) string { return "authz:user:" + userID + ":v" }

// TenantVersion implements Store.
func (c *CachedStore) TenantVersion(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, ErrEmptyID
	}
	return c.readThrough(ctx, TenantKey(tenantID), func() (int64, error) {
		return c.backend.TenantVersion(ctx, tenantID)
	})
}

// UserVersion implements Store.
func (c *CachedStore) UserVersion(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrEmptyID
	}
	return c.readThrough(ctx, UserKey(userID), func() (int64, error) {
		return c.backend.UserVersion(ctx, userID)
	})
}

// BumpTenant implements Store.
func (c *CachedStore) BumpTenant(ctx context.Context, tenantID string) (int64, error) {
	v, err := c.backend.BumpTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	c.publish(ctx, TenantKey(tenantID), v)
	return v, nil
}

// BumpUser implements Store.
func (c *CachedStore) BumpUser(ctx context.Context, userID string) (int64, error) {
	v, err := c.backend.BumpUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	c.publish(ctx, UserKey(userID), v)
	return v, nil
}

// WarmTenant loads tenantID's version from the backend into redis.
func (c *CachedStore) WarmTenant(ctx context.Context, tenantID string) error {
	v, err := c.backend.TenantVersion(ctx, tenantID)
	if err != nil {
		return err
	}
	_, err = c.set(ctx, TenantKey(tenantID), v)
	return err
}

// WarmUser loads userID's version from the backend into redis.
func (c *CachedStore) WarmUser(ctx context.Context, userID string) error {
	v, err := c.backend.UserVersion(ctx, userID)
	if err != nil {
		return err
	}
	_, err = c.set(ctx, UserKey(userID), v)
	return err
}

// InvalidateTenant drops the cached version of tenantID.
func (c *CachedStore) InvalidateTenant(ctx context.Context, tenantID string) error {
	return c.del(ctx, TenantKey(tenantID))
}

// InvalidateUser drops the cached version of userID.
func (c *CachedStore) InvalidateUser(ctx context.Context, userID string) error {
	return c.del(ctx, UserKey(userID))
}

func (c *CachedStore) readThrough(ctx context.Context, key string, load func() (int64, error)) (int64, error) {
	if v, ok := c.get(ctx, key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return 0, err
	}
	stored, err := c.set(ctx, key, v)
	if err != nil {
		c.warn(err, key, "Failed to cache version")
		return v, nil
	}
	return stored, nil
}

func (c *CachedStore) get(ctx context.Context, key string) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		c.warn(err, key, "Version cache read failed, falling back to backend")
		return 0, false
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < InitialVersion {
		c.warn(err, key, "Ignoring malformed cached version")
		return 0, false
	}
	return v, true
}

// setMaxScript stores ARGV[1] unless the key already holds a version at least
// as high, and returns the version left in the key. A reader that loaded a
// version before a concurrent bump can therefore never overwrite the bump.
var setMaxScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]))
local v = tonumber(ARGV[1])
if cur and cur >= v then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return cur
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return v
`)

// set writes v to key with max-wins semantics and returns the stored version.
func (c *CachedStore) set(ctx context.Context, key string, v int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return setMaxScript.Run(ctx, c.rdb, []string{key}, v, c.ttl.Milliseconds()).Int64()
}

func (c *CachedStore) del(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.Del(ctx, key).Err()
}

// publish writes a freshly bumped version. If that fails the key is deleted so
// readers go to the backend instead of serving the previous version.
func (c *CachedStore) publish(ctx context.Context, key string, v int64) {
	_, err := c.set(ctx, key, v)
	if err == nil {
		return
	}
	c.warn(err, key, "Failed to cache bumped version, invalidating")
	if err := c.del(ctx, key); err != nil {
		logging.Error().Err(err).Str("key", key).Msg("Failed to invalidate cached version after bump")
	}
}

func (c *CachedStore) warn(err error, key, msg string) {
	c.throttle.Event(logging.Warn()).Err(err).Str("key", key).Msg(msg)
}
