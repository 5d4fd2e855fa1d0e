// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package services

import (
	"context"
	"time"

	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/metrics"
	"github.com/tomtom215/tenantguard/internal/policy"
)

// PolicyLoader is satisfied by *policy.Store.
type PolicyLoader interface {
	Load(ctx context.Context) error
	Snapshot() *policy.Snapshot
}

// PolicyRefreshService periodically rebuilds the policy snapshot from the
// durable backend so the served snapshot converges on the backend of record.
//
// A failed reload keeps the previous snapshot and is retried on the next
// tick; the service itself only exits when its context is canceled.
type PolicyRefreshService struct {
	loader   PolicyLoader
	interval time.Duration
	name     string
}

// NewPolicyRefreshService creates a refresher that reloads every interval.
// Non-positive intervals fall back to one minute.
func NewPolicyRefreshService(loader PolicyLoader, interval time.Duration) *PolicyRefreshService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PolicyRefreshService{
		loader:   loader,
		interval: interval,
		name:     "policy-refresher",
	}
}

// Serve implements suture.Service.
func (s *PolicyRefreshService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Refresh performs one reload and reports whether it succeeded.
func (s *PolicyRefreshService) Refresh(ctx context.Context) bool {
	if err := s.loader.Load(ctx); err != nil {
		metrics.AuthzPolicyReloadsTotal.WithLabelValues("failure").Inc()
		logging.Warn().Err(err).Msg("Policy refresh failed, keeping previous snapshot")
		return false
	}

	metrics.AuthzPolicyReloadsTotal.WithLabelValues("success").Inc()
	if snap := s.loader.Snapshot(); snap != nil {
		metrics.UpdatePolicyStats(snap.Counts())
	}
	return true
}

// String implements fmt.Stringer for logging.
func (s *PolicyRefreshService) String() string {
	return s.name
}
