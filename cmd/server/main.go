// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/tenantguard/internal/api"
	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/config"
	"github.com/tomtom215/tenantguard/internal/logging"
	"github.com/tomtom215/tenantguard/internal/supervisor"
	"github.com/tomtom215/tenantguard/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Tenantguard stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("auth_mode", cfg.Auth.Mode).
		Msg("Starting Tenantguard with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.close()

	authenticator, err := auth.NewAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	handler := api.NewHandler(comps.gate, comps.admin, comps.auditLogger, comps.checks)
	router := api.NewRouter(handler, authenticator, comps.gate, api.ChiMiddlewareConfigFrom(cfg.Server))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}
	addServices(tree, cfg, comps, server)

	logging.Info().Msg("Starting supervisor tree...")
	for err := range tree.ServeBackground(ctx) {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}

// addServices places every long-running component in its layer.
func addServices(tree *supervisor.SupervisorTree, cfg *config.Config, comps *components, server *http.Server) {
	tree.AddDataService(services.NewAuditLoggerService(comps.auditLogger))
	if cfg.Audit.RetentionDays > 0 {
		tree.AddDataService(audit.NewRetentionSweeper(comps.auditLogger, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval))
		logging.Info().Int("retention_days", cfg.Audit.RetentionDays).Msg("Audit retention sweeper added")
	}

	// The memory backend is only written through the store itself.
	if cfg.Policy.Backend != "memory" && cfg.Policy.RefreshInterval > 0 {
		tree.AddPolicyService(services.NewPolicyRefreshService(comps.policy, cfg.Policy.RefreshInterval))
		logging.Info().Dur("interval", cfg.Policy.RefreshInterval).Msg("Policy refresher added")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
}
