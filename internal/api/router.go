// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tenantguard/internal/auth"
	"github.com/tomtom215/tenantguard/internal/authz"
	"github.com/tomtom215/tenantguard/internal/middleware"
)

// Router wires handlers, authentication and the authorization gate into a chi mux.
type Router struct {
	handler       *Handler
	authenticator auth.Authenticator
	gate          *authz.Gate
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware config uses the defaults.
func NewRouter(handler *Handler, authenticator auth.Authenticator, gate *authz.Gate, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		authenticator: authenticator,
		gate:          gate,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(auth.Middleware(router.authenticator))

		r.With(router.chiMiddleware.RateLimit()).Post("/authorize", router.handler.Authorize)

		// Admin routes authorize themselves: resource is the route pattern,
		// action comes from the method. Group middlewares run after routing,
		// so the pattern is complete when the gate sees it.
		r.Group(func(r chi.Router) {
			r.Use(router.gate.Middleware(authz.RoutePattern, authz.MethodAction))

			r.Get("/admin/permissions", router.handler.ListPermissions)
			r.Get("/admin/roles", router.handler.ListRoles)
			r.Get("/admin/roles/{subject}", router.handler.SubjectRoles)
			r.Get("/admin/audit", router.handler.QueryAudit)
			r.Get("/admin/audit/{id}", router.handler.GetAuditEvent)
			r.Get("/admin/cache/stats", router.handler.CacheStats)

			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitAdminWrite())
				r.Post("/admin/permissions", router.handler.AddPermission)
				r.Delete("/admin/permissions", router.handler.RemovePermission)
				r.Post("/admin/roles", router.handler.AssignRole)
				r.Delete("/admin/roles", router.handler.RevokeRole)
				r.Post("/admin/cache/invalidate", router.handler.InvalidateCache)
			})
		})
	})

	return r
}
