// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/tenantguard/internal/logging"
)

// RetentionSweeper periodically deletes events older than the retention period.
type RetentionSweeper struct {
	logger        *Logger
	retentionDays int
	interval      time.Duration
	now           func() time.Time
}

// NewRetentionSweeper creates a sweeper. Defaults: 90 days, every 24h.
func NewRetentionSweeper(logger *Logger, retentionDays int, interval time.Duration) *RetentionSweeper {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionSweeper{
		logger:        logger,
		retentionDays: retentionDays,
		interval:      interval,
		now:           time.Now,
	}
}

// Cutoff returns the creation time before which events are removed.
func (s *RetentionSweeper) Cutoff() time.Time {
	return s.now().AddDate(0, 0, -s.retentionDays)
}

// Sweep runs one retention pass.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()
	count, err := s.logger.CleanupBefore(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
		return 0, err
	}
	if count > 0 {
		logging.Info().Int64("count", count).Time("older_than", cutoff).Msg("Cleaned up old audit events")
	}
	return count, nil
}

// Serve sweeps once immediately and then every interval until ctx is done.
func (s *RetentionSweeper) Serve(ctx context.Context) error {
	_, _ = s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *RetentionSweeper) String() string {
	return "audit-retention"
}
