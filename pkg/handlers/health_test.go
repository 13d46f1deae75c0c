package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/metrics"
)

func TestHealthHandler_Health_WithoutConnManager(t *testing.T) {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}
	handler := NewHealthHandler(cfg, nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Connections != nil {
		t.Error("expected nil connections when conn manager not provided")
	}
}

func TestHealthHandler_Health_WithConnManager(t *testing.T) {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}

	connManager := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:     5,
		MaxConnections: 10,
		PoolMaxConns:   10,
		PoolMinConns:   1,
	}, zap.NewNop())
	defer connManager.Close()

	handler := NewHealthHandler(cfg, connManager, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Connections == nil {
		t.Fatal("expected non-nil connections when conn manager provided")
	}
	if response.Connections.TotalConnections != 0 {
		t.Errorf("expected 0 total connections, got %d", response.Connections.TotalConnections)
	}
	if response.Connections.MaxConnections != 10 {
		t.Errorf("expected max 10 connections, got %d", response.Connections.MaxConnections)
	}
	if response.Connections.TTLMinutes != 5 {
		t.Errorf("expected TTL 5 minutes, got %d", response.Connections.TTLMinutes)
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	cfg := &config.Config{
		Version: "1.2.3",
		Env:     "test",
	}
	handler := NewHealthHandler(cfg, nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	handler.Ping(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got '%s'", response.Version)
	}
	if response.Service != "ekaya-migrate" {
		t.Errorf("expected service 'ekaya-migrate', got '%s'", response.Service)
	}
	if response.Environment != "test" {
		t.Errorf("expected environment 'test', got '%s'", response.Environment)
	}
	if response.GoVersion == "" {
		t.Error("expected non-empty go_version")
	}
}

func TestHealthHandler_Metrics_WithoutCollector(t *testing.T) {
	handler := NewHealthHandler(&config.Config{}, nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.Metrics(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestHealthHandler_Routes(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(&config.Config{Version: "v"}, nil, nil, zap.NewNop()).RegisterRoutes(mux)

	for _, path := range []string{"/health", "/ping"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestHealthHandler_Metrics_Prometheus(t *testing.T) {
	connManager := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{MaxConnections: 7}, zap.NewNop())
	defer connManager.Close()

	collector := metrics.NewCollector("", connManager)
	handler := NewHealthHandler(&config.Config{}, connManager, collector, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.Metrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"ekaya_migrate_pool_open 0", "ekaya_migrate_pool_max 7"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
