// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package main is the entry point for the Tenantguard authorization server.

Tenantguard answers "may subject S perform action A on resource R within
tenant T" from a tenant-scoped RBAC policy, caches decisions under versioned
keys and records an audit trail of decisions and policy changes.

# Application Architecture

	RootSupervisor ("tenantguard")
	├── DataSupervisor ("data-layer")
	│   ├── Audit logger
	│   └── Audit retention sweeper (AUDIT_RETENTION_DAYS > 0)
	├── PolicySupervisor ("policy-layer")
	│   └── Policy refresher (POLICY_BACKEND=badger, POLICY_REFRESH_INTERVAL > 0)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Initialization order:

 1. Configuration: Koanf v2 from defaults, config file and environment
 2. Logging: zerolog, bridged to slog for the supervisor event hook
 3. Redis: only when CACHE_BACKEND=redis or VERSION_REDIS_ENABLED=true
 4. Policy store: memory or BadgerDB backend, optional seed file
 5. Version store: memory or BadgerDB, optionally fronted by redis
 6. Decision cache: memory (LRU), redis or none
 7. Audit: memory or DuckDB store behind the asynchronous logger
 8. HTTP: chi router with authentication and the authorization gate

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
SHUTDOWN_TIMEOUT, the audit logger flushes its queue, then storage
handles are closed.

# Example Usage

Development with header authentication:

	export AUTH_MODE=header
	export POLICY_SEED_FILE=./policy.csv
	./tenantguard

Production with JWT, persistent policy and a shared decision cache:

	export AUTH_MODE=jwt
	export JWT_SECRET=$(openssl rand -base64 32)
	export POLICY_BACKEND=badger
	export VERSION_BACKEND=badger
	export CACHE_BACKEND=redis
	export REDIS_URL=redis://redis:6379/0
	export AUDIT_STORE=duckdb
	./tenantguard
*/
package main
