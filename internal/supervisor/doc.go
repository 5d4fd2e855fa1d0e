// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package supervisor provides process supervision for Tenantguard using suture v4.

Every long-running component runs under a hierarchical supervisor tree with
automatic restart, failure isolation and graceful shutdown.

# Overview

	RootSupervisor ("tenantguard")
	├── DataSupervisor ("data-layer")
	│   ├── AuditLoggerService
	│   └── audit.RetentionSweeper (if audit.retention_days > 0)
	├── PolicySupervisor ("policy-layer")
	│   └── PolicyRefreshService (if policy.refresh_interval > 0)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The audit writer can crash and restart without interrupting the HTTP server.
Authorization decisions keep using the last published policy snapshot while
the refresher is backing off.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewAuditLoggerService(auditLogger))
	tree.AddPolicyService(services.NewPolicyRefreshService(store, time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Failure Handling

Each layer counts failures with exponential decay (FailureDecay seconds).
Crossing FailureThreshold delays the next restart by FailureBackoff.

# What Is NOT Supervised

BadgerDB, DuckDB and Redis are libraries or remote clients, not services.
Their handles are opened in main and closed after the tree stops.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("Service did not stop")
	}
*/
package supervisor
