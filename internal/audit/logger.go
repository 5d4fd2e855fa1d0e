// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	// BufferSize is the capacity of the event queue.
	BufferSize int `json:"buffer_size"`

	// BatchSize is the number of events written per store call.
	BatchSize int `json:"batch_size"`

	// FlushInterval bounds how long an event waits in a partial batch.
	FlushInterval time.Duration `json:"flush_interval"`

	// WriteTimeout bounds each SaveBatch call.
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		BatchSize:     100,
		FlushInterval: time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// ErrAlreadyRunning is returned by Run when a consumer is already active.
var ErrAlreadyRunning = errors.New("audit logger already running")

// Logger is the asynchronous audit writer.
//
// Any number of goroutines may call Log; exactly one consumer (Run) drains
// the queue and persists batches.
type Logger struct {
	config Config
	store  Store
	events chan Event

	running atomic.Bool

	// mu orders Close against in-flight sends: once closed is set under the
	// write lock no Log can enqueue.
	mu     sync.RWMutex
	closed bool

	// Owned consumer started by Start.
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	throttle *logging.Throttle
}

// NewLogger creates a new audit logger. Call Start, or run Run under a
// supervisor, to begin persisting events.
func NewLogger(store Store, config Config) *Logger {
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.BatchSize > config.BufferSize {
		config.BatchSize = config.BufferSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if store == nil {
		store = NoOpStore{}
	}

	return &Logger{
		config:   config,
		store:    store,
		events:   make(chan Event, config.BufferSize),
		throttle: logging.NewThrottle(10*time.Second, 1),
	}
}

// Log enqueues an event without blocking. When the queue is full the oldest
// queued event is dropped to make room.
func (l *Logger) Log(event Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		metrics.AuthzAuditDroppedTotal.WithLabelValues("closed").Inc()
		return
	}

	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	for {
		select {
		case l.events <- event:
			metrics.AuthzAuditBufferUsage.Set(l.usage())
			return
		default:
		}

		select {
		case dropped := <-l.events:
			metrics.AuthzAuditDroppedTotal.WithLabelValues("overflow").Inc()
			l.throttle.Event(logging.Warn()).
				Str("dropped_event_id", dropped.ID).
				Int("buffer_size", l.config.BufferSize).
				Msg("Audit buffer full, dropping oldest event")
		default:
			// The consumer emptied a slot in the meantime.
		}
	}
}

// Start runs the consumer in a goroutine owned by the logger. Close stops it.
func (l *Logger) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Audit logger stopped")
		}
	}()
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (l *Logger) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, l.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			batch = l.drain(batch)
			l.flush(batch)
			return ctx.Err()
		case event := <-l.events:
			batch = append(batch, event)
			if len(batch) >= l.config.BatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

// drain moves every queued event into batch, flushing full batches.
func (l *Logger) drain(batch []Event) []Event {
	for {
		select {
		case event := <-l.events:
			batch = append(batch, event)
			if len(batch) >= l.config.BatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		default:
			return batch
		}
	}
}

// flush persists one batch. Failures are logged and the batch is dropped.
func (l *Logger) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}
	metrics.AuthzAuditBufferUsage.Set(l.usage())

	ctx, cancel := context.WithTimeout(context.Background(), l.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := l.store.SaveBatch(ctx, batch)
	metrics.AuthzAuditFlushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AuthzAuditDroppedTotal.WithLabelValues("write_failed").Add(float64(len(batch)))
		metrics.RecordAuthzError("audit_write_failed")
		l.throttle.Event(logging.Warn()).Err(err).Int("events", len(batch)).
			Msg("Failed to persist audit batch")
		return
	}
	for i := range batch {
		metrics.AuthzAuditEventsTotal.WithLabelValues(string(batch[i].EventType)).Inc()
	}
}

func (l *Logger) usage() float64 {
	return float64(len(l.events)) / float64(cap(l.events)) * 100
}

// Close stops accepting events and, if Start was used, waits for the
// consumer to flush the queue. Events still queued once no consumer is
// running are flushed synchronously. Safe to call more than once.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		if l.cancel != nil {
			l.cancel()
		}
		l.wg.Wait()

		if !l.running.Load() {
			l.flush(l.drain(make([]Event, 0, l.config.BatchSize)))
		}
	})
	return nil
}

// Pending returns the number of queued events.
func (l *Logger) Pending() int {
	return len(l.events)
}

// Query retrieves one page of events matching the filter.
func (l *Logger) Query(ctx context.Context, filter Filter) ([]Event, int64, error) {
	return l.store.Query(ctx, filter)
}

// Get retrieves one event of tenant by ID.
func (l *Logger) Get(ctx context.Context, tenantID, id string) (*Event, error) {
	return l.store.Get(ctx, tenantID, id)
}

// CleanupBefore removes events created before t.
func (l *Logger) CleanupBefore(ctx context.Context, t time.Time) (int64, error) {
	count, err := l.store.DeleteBefore(ctx, t)
	if err != nil {
		return 0, err
	}
	metrics.AuthzAuditRetentionDeletedTotal.Add(float64(count))
	return count, nil
}
