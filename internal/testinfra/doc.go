// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

// Package testinfra provides container helpers for integration tests.
//
// It uses testcontainers-go to run a real redis so the distributed decision
// cache and the version cache can be exercised against the server they talk
// to in production:
//
//	func TestRedisCacheIntegration(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(ctx, t, rc)
//	    // ...
//	}
//
// Everything here sits behind the integration build tag. Tests skip when no
// Docker daemon is reachable. The first run pulls the redis image.
package testinfra
