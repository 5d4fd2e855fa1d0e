// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/tenantguard/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDefaultChiMiddlewareConfig(t *testing.T) {
	c := DefaultChiMiddlewareConfig()
	if len(c.CORSAllowedOrigins) != 0 {
		t.Errorf("CORS origins should default to empty, got %v", c.CORSAllowedOrigins)
	}
	if c.RateLimitDisabled {
		t.Error("rate limiting should be enabled by default")
	}
}

func TestChiMiddlewareConfigFrom(t *testing.T) {
	c := ChiMiddlewareConfigFrom(config.ServerConfig{
		CORSOrigins:       []string{"https://console.example.com"},
		RateLimitRequests: 5,
		RateLimitWindow:   time.Second,
	})
	if c.RateLimitDisabled || c.RateLimitRequests != 5 || c.RateLimitWindow != time.Second {
		t.Errorf("rate limit config = %+v", c)
	}
	if len(c.CORSAllowedOrigins) != 1 {
		t.Errorf("origins = %v", c.CORSAllowedOrigins)
	}

	if !ChiMiddlewareConfigFrom(config.ServerConfig{}).RateLimitDisabled {
		t.Error("zero request count should disable rate limiting")
	}
}

func TestChiMiddleware_CORS(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"https://allowed.com"},
		CORSAllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,
	})

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantCalled bool
	}{
		{"allowed origin", http.MethodGet, "https://allowed.com", "https://allowed.com", true},
		{"disallowed origin", http.MethodGet, "https://evil.com", "", true},
		{"no origin header", http.MethodGet, "", "", true},
		{"preflight", http.MethodOptions, "https://allowed.com", "https://allowed.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := m.CORS()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestChiMiddleware_RateLimit(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	handler := m.RateLimit()(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/authorize", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}

	// A different client has its own budget.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authorize", nil)
	req.RemoteAddr = "192.0.2.11:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}
}

func TestChiMiddleware_RateLimit_Disabled(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute, RateLimitDisabled: true})
	for _, mw := range []func(http.Handler) http.Handler{m.RateLimit(), m.RateLimitAdminWrite(), m.RateLimitHealth()} {
		handler := mw(okHandler())
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d status = %d", i, rec.Code)
			}
		}
	}
}

func TestAPISecurityHeaders(t *testing.T) {
	handler := APISecurityHeaders()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("headers = %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS should be set behind a TLS proxy")
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
