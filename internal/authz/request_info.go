// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package authz

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/logging"
)

// RequestInfo is the client context recorded on audit events.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

type requestInfoKey struct{}

// WithRequestInfo returns a copy of ctx carrying info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromHTTP extracts client context from r. Forwarding headers are
// trusted only as far as the upstream RealIP middleware rewrote RemoteAddr.
func RequestInfoFromHTTP(r *http.Request) RequestInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return RequestInfo{
		IPAddress: strings.TrimSpace(ip),
		UserAgent: r.UserAgent(),
	}
}

func withRequestInfo(ctx context.Context, event *audit.Event) {
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		event.IPAddress = info.IPAddress
		event.UserAgent = info.UserAgent
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
}
