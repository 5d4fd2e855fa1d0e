// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/metrics"
)

// Defaults for the redis backend.
const (
	DefaultRedisTimeout      = 25 * time.Millisecond
	DefaultInvalidateTimeout = 5 * time.Second
	scanBatchSize            = 500
	breakerName              = "decision-cache-redis"
)

// RedisOptions configures RedisCache.
type RedisOptions struct {
	// TTL is the lifetime of each decision. Default: 15s
	TTL time.Duration
	// Timeout bounds each Get and Set. Default: 25ms
	Timeout time.Duration
	// InvalidateTimeout bounds InvalidateTenant. Default: 5s
	InvalidateTimeout time.Duration
	// BreakerTimeout is how long the circuit stays open before probing again. Default: 30s
	BreakerTimeout time.Duration
}

// RedisCache shares decisions between instances through redis.
//
// Every call runs under its own short timeout and through a circuit breaker,
// so a slow or dead redis degrades to cache misses within tens of
// milliseconds and, once the breaker opens, immediately.
type RedisCache struct {
	rdb      redis.UniversalClient
	opts     RedisOptions
	cb       *gobreaker.CircuitBreaker[string]
	throttle *logging.Throttle
	counters
}

// NewRedisCache creates a redis-backed decision cache.
func NewRedisCache(rdb redis.UniversalClient, opts RedisOptions) *RedisCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRedisTimeout
	}
	if opts.InvalidateTimeout <= 0 {
		opts.InvalidateTimeout = DefaultInvalidateTimeout
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// A cache is only worth calling while it answers quickly; trip
			// early on consecutive failures rather than waiting for a ratio.
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Decision cache circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &RedisCache{
		rdb:      rdb,
		opts:     opts,
		cb:       cb,
		throttle: logging.NewThrottle(10*time.Second, 1),
	}
}

// Name implements Cache.
func (c *RedisCache) Name() string { return "redis" }

// Get implements Cache. Errors, timeouts and an open circuit are misses.
func (c *RedisCache) Get(ctx context.Context, key Key) (bool, bool) {
	val, err := c.execute(ctx, "get", func(ctx context.Context) (string, error) {
		return c.rdb.Get(ctx, key.String()).Result()
	})
	if err != nil || (val != "0" && val != "1") {
		c.misses.Add(1)
		metrics.AuthzCacheMissesTotal.WithLabelValues("redis").Inc()
		return false, false
	}
	c.hits.Add(1)
	metrics.AuthzCacheHitsTotal.WithLabelValues("redis").Inc()
	return val == "1", true
}

// Set implements Cache. Failures are logged and counted, never returned.
func (c *RedisCache) Set(ctx context.Context, key Key, allowed bool) {
	v := "0"
	if allowed {
		v = "1"
	}
	_, _ = c.execute(ctx, "set", func(ctx context.Context) (string, error) {
		return c.rdb.Set(ctx, key.String(), v, c.opts.TTL).Result()
	})
}

// InvalidateTenant implements Cache by scanning and deleting the tenant's keys.
func (c *RedisCache) InvalidateTenant(ctx context.Context, tenant string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.InvalidateTimeout)
	defer cancel()

	match := TenantPrefix(tenant) + "*"
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: scan %s: %w", ErrBackendUnavailable, match, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: delete: %w", ErrBackendUnavailable, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	metrics.AuthzCacheInvalidationsTotal.WithLabelValues("redis").Inc()
	logging.Ctx(ctx).Debug().Str("tenant_id", tenant).Int("keys", deleted).Msg("Decision cache invalidated")
	return nil
}

// Stats implements Cache. Counts are local to this instance.
func (c *RedisCache) Stats() Stats { return c.stats() }

// BreakerState reports the circuit breaker state.
func (c *RedisCache) BreakerState() gobreaker.State { return c.cb.State() }

func (c *RedisCache) execute(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	val, err := c.cb.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
		return fn(ctx)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		metrics.AuthzCacheErrorsTotal.WithLabelValues("redis", op).Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		metrics.AuthzCacheErrorsTotal.WithLabelValues("redis", op).Inc()
		metrics.RecordAuthzError("cache_backend_unavailable")
		c.throttle.Event(logging.Ctx(ctx).Warn()).Err(err).Str("operation", op).
			Msg("Decision cache backend error, treating as miss")
	}
	return val, err
}

// stateToFloat maps breaker states to the circuit_breaker_state gauge values.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
