// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import "testing"

func TestPolicy_ShouldLogDecision(t *testing.T) {
	p := NewPolicy([]string{"/api/v1/admin/**", "/billing/*", " ", "/tenants/*/secrets/**"})

	tests := []struct {
		resource string
		allowed  bool
		want     bool
	}{
		{"/reports", false, true},
		{"/reports", true, false},
		{"/api/v1/admin", true, true},
		{"/api/v1/admin/roles", true, true},
		{"/api/v1/admin/roles/alice", true, true},
		{"/api/v1/administrators", true, false},
		{"/billing/invoices", true, true},
		{"/billing/invoices/42", true, false},
		{"/tenants/acme/secrets", true, true},
		{"/tenants/acme/secrets/db/password", true, true},
		{"/tenants/acme/public/x", true, false},
	}
	for _, tt := range tests {
		if got := p.ShouldLogDecision(tt.resource, tt.allowed); got != tt.want {
			t.Errorf("ShouldLogDecision(%q, %v) = %v, want %v", tt.resource, tt.allowed, got, tt.want)
		}
	}
}

func TestPolicy_NoPatterns(t *testing.T) {
	p := NewPolicy(nil)
	if p.ShouldLogDecision("/anything", true) {
		t.Error("allow should not be logged without sensitive patterns")
	}
	if !p.ShouldLogDecision("/anything", false) {
		t.Error("deny must always be logged")
	}
}
