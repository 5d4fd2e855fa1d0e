// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory storage.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	events []Event
	mu     sync.RWMutex
	maxLen int
}

// NewMemoryStore creates a new in-memory audit store holding at most maxLen events.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		events: make([]Event, 0, 64),
		maxLen: maxLen,
	}
}

// SaveBatch appends events, discarding the oldest 10% once full.
func (s *MemoryStore) SaveBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range events {
		if len(s.events) >= s.maxLen {
			removeCount := max(s.maxLen/10, 1)
			s.events = append(s.events[:0], s.events[removeCount:]...)
		}
		s.events = append(s.events, events[i])
	}
	return nil
}

// Get retrieves an event by tenant and ID.
func (s *MemoryStore) Get(_ context.Context, tenantID, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.events {
		if s.events[i].ID == id && s.events[i].TenantID == tenantID {
			event := s.events[i]
			return &event, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Query retrieves one page of matching events, newest first.
func (s *MemoryStore) Query(_ context.Context, filter Filter) ([]Event, int64, error) {
	if filter.TenantID == "" {
		return nil, 0, ErrTenantRequired
	}
	filter.Normalize()

	s.mu.RLock()
	var matched []Event
	for i := range s.events {
		if matchesFilter(&s.events[i], &filter) {
			matched = append(matched, s.events[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.Offset()
	if start >= len(matched) {
		return []Event{}, total, nil
	}
	end := min(start+filter.PageSize, len(matched))
	return matched[start:end], total, nil
}

// DeleteBefore removes events created before t.
func (s *MemoryStore) DeleteBefore(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for i := range s.events {
		if s.events[i].CreatedAt.Before(t) {
			deleted++
			continue
		}
		kept = append(kept, s.events[i])
	}
	s.events = kept
	return deleted, nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// matchesFilter returns true if the event matches all filter criteria.
func matchesFilter(event *Event, filter *Filter) bool {
	if event.TenantID != filter.TenantID {
		return false
	}
	if filter.UserID != "" && event.UserID != filter.UserID {
		return false
	}
	if filter.EventType != "" && event.EventType != filter.EventType {
		return false
	}
	if filter.Decision != "" && event.Decision != filter.Decision {
		return false
	}
	if filter.From != nil && event.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && event.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

// NoOpStore discards every event.
type NoOpStore struct{}

func (NoOpStore) SaveBatch(context.Context, []Event) error { return nil }

func (NoOpStore) Get(_ context.Context, _, id string) (*Event, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (NoOpStore) Query(_ context.Context, filter Filter) ([]Event, int64, error) {
	if filter.TenantID == "" {
		return nil, 0, ErrTenantRequired
	}
	return []Event{}, 0, nil
}

func (NoOpStore) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }
