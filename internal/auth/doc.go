// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package auth establishes the caller identity at the HTTP boundary.

Authorization decisions need a trustworthy (subject, tenant) pair. This
package produces one and stores it in the request context; it does not decide
anything itself.

Authentication Modes:

 1. JWT Mode (default): HMAC-SHA256 bearer tokens. Claims carry the subject
    ("sub"), the tenant ("tenant_id") and, optionally, the tenant and user
    authorization versions that were current when the token was issued
    ("tenant_v", "user_v"). The authorization gate compares those versions
    against the current ones to reject tokens issued before a revocation.

 2. Header Mode: the identity is read from X-Subject-ID and X-Tenant-ID,
    for deployments behind an authenticating proxy that strips client-supplied
    copies of these headers.

Usage Example:

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
	    log.Fatal(err)
	}
	authenticator := auth.NewJWTAuthenticator(jwtManager)

	r := chi.NewRouter()
	r.Use(auth.Middleware(authenticator))
	r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
	    id, _ := auth.IdentityFromContext(r.Context())
	    fmt.Fprintln(w, id.Subject, id.Tenant)
	})
*/
package auth
