// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package logging

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Throttle limits how often a recurring warning is written. A degraded
// dependency on the request path (cache or version backend) would otherwise
// emit one line per request.
//
// Suppressed occurrences are counted and reported on the next emitted line
// as "suppressed".
type Throttle struct {
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewThrottle allows one event per interval with the given burst.
func NewThrottle(interval time.Duration, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Event returns e annotated with the suppressed count when the limiter
// allows it, or nil when the line should be dropped. zerolog treats a nil
// *Event as a no-op, so callers can chain unconditionally:
//
//	t.Event(logging.Warn()).Err(err).Msg("Decision cache unavailable")
func (t *Throttle) Event(e *zerolog.Event) *zerolog.Event {
	if !t.limiter.Allow() {
		t.suppressed.Add(1)
		return nil
	}
	if n := t.suppressed.Swap(0); n > 0 {
		return e.Int64("suppressed", n)
	}
	return e
}
