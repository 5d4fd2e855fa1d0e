// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type ruleRequest struct {
	Tenant   string `json:"tenant" validate:"required,tenantid"`
	Subject  string `json:"subject" validate:"required,max=16"`
	Resource string `json:"resource" validate:"required,resource"`
	Action   string `json:"action" validate:"required,authzaction"`
	Effect   string `json:"effect,omitempty" validate:"omitempty,oneof=allow deny"`
}

func validRule() ruleRequest {
	return ruleRequest{Tenant: "acme-eu.prod", Subject: "editor", Resource: "/api/v1/docs/{id}", Action: "export:pdf"}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ruleRequest)
		wantField string
		wantTag   string
	}{
		{"valid", func(*ruleRequest) {}, "", ""},
		{"valid deny effect", func(r *ruleRequest) { r.Effect = "deny" }, "", ""},
		{"missing tenant", func(r *ruleRequest) { r.Tenant = "" }, "tenant", "required"},
		{"tenant with colon", func(r *ruleRequest) { r.Tenant = "acme:eu" }, "tenant", "tenantid"},
		{"tenant with glob", func(r *ruleRequest) { r.Tenant = "acme*" }, "tenant", "tenantid"},
		{"tenant too long", func(r *ruleRequest) { r.Tenant = strings.Repeat("a", 129) }, "tenant", "tenantid"},
		{"subject too long", func(r *ruleRequest) { r.Subject = strings.Repeat("s", 17) }, "subject", "max"},
		{"resource with space", func(r *ruleRequest) { r.Resource = "/a b" }, "resource", "resource"},
		{"resource with newline", func(r *ruleRequest) { r.Resource = "/a\nb" }, "resource", "resource"},
		{"uppercase action", func(r *ruleRequest) { r.Action = "Read" }, "action", "authzaction"},
		{"unknown effect", func(r *ruleRequest) { r.Effect = "maybe" }, "effect", "oneof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRule()
			tt.mutate(&req)
			verr := ValidateStruct(&req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	req := validRule()
	req.Tenant = ""
	apiErr := ValidateStruct(&req).ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "tenant is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "tenant" {
		t.Errorf("Details = %v", apiErr.Details)
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	apiErr := ValidateStruct(&ruleRequest{}).ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details = %v", apiErr.Details)
	}
	if len(fields) != 4 {
		t.Errorf("got %d field errors, want 4", len(fields))
	}
	if !strings.Contains(apiErr.Message, "action is required") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestIsTenantID(t *testing.T) {
	for _, ok := range []string{"acme", "a", "acme-eu_1.prod"} {
		if !IsTenantID(ok) {
			t.Errorf("IsTenantID(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "-acme", "acme:eu", "ac me", "acme[1]", "acme?"} {
		if IsTenantID(bad) {
			t.Errorf("IsTenantID(%q) = true", bad)
		}
	}
}

func TestIsResource(t *testing.T) {
	if !IsResource("/api/v1/admin/roles/{subject}") {
		t.Error("route pattern should be a valid resource")
	}
	if IsResource("") || IsResource("a\tb") || IsResource(strings.Repeat("r", 1025)) {
		t.Error("invalid resources accepted")
	}
}
