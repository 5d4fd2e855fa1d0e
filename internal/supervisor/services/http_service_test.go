// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func newTestServer(handler http.Handler) *http.Server {
	return &http.Server{Addr: "127.0.0.1:0", Handler: handler, ReadHeaderTimeout: time.Second}
}

// waitListening polls until svc has bound its listener.
func waitListening(t *testing.T, svc *HTTPServerService) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := svc.Addr(); addr != nil {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server did not start listening")
	return nil
}

func TestHTTPServerService_Interface(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -5 * time.Second} {
		svc := NewHTTPServerService(newTestServer(http.NotFoundHandler()), timeout)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v: got %v, want 10s", timeout, svc.shutdownTimeout)
		}
	}
	if svc := NewHTTPServerService(newTestServer(http.NotFoundHandler()), time.Second); svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHTTPServerService_ServesAndDrains(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	svc := NewHTTPServerService(newTestServer(handler), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	addr := waitListening(t, svc)
	resp, err := http.Get("http://" + addr.String() + "/health/live")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if svc.Addr() != nil {
		t.Error("Addr should be cleared after shutdown")
	}
}

func TestHTTPServerService_BindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	server := newTestServer(http.NotFoundHandler())
	server.Addr = taken.Addr().String()
	svc := NewHTTPServerService(server, time.Second)

	err = svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected bind error")
	}
	if !strings.Contains(err.Error(), "listen on") {
		t.Errorf("error = %v, want listen failure", err)
	}
}

func TestHTTPServerService_WithSupervisor(t *testing.T) {
	svc := NewHTTPServerService(newTestServer(http.NotFoundHandler()), time.Second)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	waitListening(t, svc)

	cancel()
	<-errCh
	if svc.Addr() != nil {
		t.Error("server still listening after supervisor stopped")
	}
}
