package metrics

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestServer_HealthEndpoint(t *testing.T) {
	Reset()
	defer Reset()

	srv := NewServer("127.0.0.1:0", "core:test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln := listenForTest(t, srv)
	go func() { _ = srv.Serve(ctx) }()
	defer func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
	}()

	resp, err := http.Get("http://" + ln + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", body.Status)
	}
	if body.Data.Service != "core:test" {
		t.Errorf("expected service core:test, got %q", body.Data.Service)
	}
}

func TestServer_MetricsEndpointAbsentWhenDisabled(t *testing.T) {
	Reset()
	defer Reset()

	srv := NewServer("127.0.0.1:0", "core:test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln := listenForTest(t, srv)
	go func() { _ = srv.Serve(ctx) }()
	defer func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
	}()

	resp, err := http.Get("http://" + ln + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected /metrics to 404 when no registry is active, got %d", resp.StatusCode)
	}
}

func TestServer_MetricsEndpointServesWhenEnabled(t *testing.T) {
	Reset()
	defer Reset()
	InitRegistry()

	srv := NewServer("127.0.0.1:0", "core:test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln := listenForTest(t, srv)
	go func() { _ = srv.Serve(ctx) }()
	defer func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
	}()

	resp, err := http.Get("http://" + ln + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /metrics when registry is active, got %d", resp.StatusCode)
	}
}

// listenForTest binds srv's underlying http.Server to an OS-assigned port
// on loopback and returns its address, so tests don't race the dial against
// ListenAndServe's own internal bind.
func listenForTest(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	srv.httpServer.Addr = addr
	_ = ln.Close()
	return addr
}
