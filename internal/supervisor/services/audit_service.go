// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/logging"
)

// AuditRunner is satisfied by *audit.Logger.
type AuditRunner interface {
	Run(ctx context.Context) error
}

// AuditLoggerService runs the asynchronous audit writer under supervision.
// Queued events are flushed when the context is canceled.
//
//	svc := services.NewAuditLoggerService(auditLogger)
//	tree.AddDataService(svc)
type AuditLoggerService struct {
	logger AuditRunner
	name   string
}

// NewAuditLoggerService wraps logger.
func NewAuditLoggerService(logger AuditRunner) *AuditLoggerService {
	return &AuditLoggerService{
		logger: logger,
		name:   "audit-logger",
	}
}

// Serve implements suture.Service.
func (s *AuditLoggerService) Serve(ctx context.Context) error {
	err := s.logger.Run(ctx)
	if errors.Is(err, audit.ErrAlreadyRunning) {
		// Another consumer owns the queue; restarting would spin.
		logging.Warn().Str("service", s.name).Msg("Audit logger already running outside the supervisor")
		return suture.ErrDoNotRestart
	}
	return err
}

// String implements fmt.Stringer for logging.
func (s *AuditLoggerService) String() string {
	return s.name
}
