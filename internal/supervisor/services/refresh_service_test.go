// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tenantguard/internal/metrics"
	"github.com/tomtom215/tenantguard/internal/policy"
)

type failingLoader struct{}

func (failingLoader) Load(context.Context) error { return errors.New("backend offline") }
func (failingLoader) Snapshot() *policy.Snapshot { return nil }

func newStore(t *testing.T, backend policy.Backend) *policy.Store {
	t.Helper()
	s, err := policy.NewStore(backend, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestPolicyRefreshService_ConvergesOnBackend(t *testing.T) {
	ctx := context.Background()
	backend := policy.NewMemoryBackend()
	writer := newStore(t, backend)
	reader := newStore(t, backend)

	rule := policy.PermissionRule{Subject: "admin", Tenant: "acme", Resource: "/reports/*", Action: "read"}
	if _, err := writer.AddPermission(ctx, rule); err != nil {
		t.Fatalf("AddPermission() error = %v", err)
	}
	if got := len(reader.Snapshot().Permissions("acme")); got != 0 {
		t.Fatalf("reader saw %d rules before refresh", got)
	}

	before := testutil.ToFloat64(metrics.AuthzPolicyReloadsTotal.WithLabelValues("success"))
	svc := NewPolicyRefreshService(reader, time.Minute)
	if !svc.Refresh(ctx) {
		t.Fatal("Refresh() = false")
	}

	if got := len(reader.Snapshot().Permissions("acme")); got != 1 {
		t.Errorf("reader rules after refresh = %d, want 1", got)
	}
	if after := testutil.ToFloat64(metrics.AuthzPolicyReloadsTotal.WithLabelValues("success")); after != before+1 {
		t.Errorf("success reloads = %v, want %v", after, before+1)
	}
}

func TestPolicyRefreshService_FailureKeepsRunning(t *testing.T) {
	before := testutil.ToFloat64(metrics.AuthzPolicyReloadsTotal.WithLabelValues("failure"))
	svc := NewPolicyRefreshService(failingLoader{}, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want deadline exceeded", err)
	}
	if after := testutil.ToFloat64(metrics.AuthzPolicyReloadsTotal.WithLabelValues("failure")); after <= before {
		t.Error("expected failed reloads to be counted")
	}
}

func TestNewPolicyRefreshService_DefaultInterval(t *testing.T) {
	svc := NewPolicyRefreshService(failingLoader{}, 0)
	if svc.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", svc.interval)
	}
	if svc.String() != "policy-refresher" {
		t.Errorf("String() = %q", svc.String())
	}
}
