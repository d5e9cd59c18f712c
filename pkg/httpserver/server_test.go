package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/accountant"
	"github.com/marketengine/binary-engine/pkg/healthprobe"
	"github.com/marketengine/binary-engine/internal/store"
)

func newTestAccountant(t *testing.T) *accountant.Accountant {
	t.Helper()
	acc, err := accountant.New(context.Background(), store.NewConsole(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("accountant.New: %v", err)
	}
	return acc
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	tests := []struct {
		name      string
		cfg       *Config
		wantPanic bool
	}{
		{
			name: "valid_config_minimal",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
			},
			wantPanic: false,
		},
		{
			name: "valid_config_with_debug_components",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
				Accountant:    newTestAccountant(t),
				Store:         store.NewConsole(logger),
			},
			wantPanic: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != tt.wantPanic {
					t.Errorf("New() panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()

			server := New(tt.cfg)
			if server == nil {
				t.Error("New() returned nil server")
			}
			if server.server == nil {
				t.Error("New() server.server is nil")
			}
			if server.logger != tt.cfg.Logger {
				t.Error("New() logger not set correctly")
			}
			if server.healthChecker != tt.cfg.HealthChecker {
				t.Error("New() healthChecker not set correctly")
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{
			name:           "ready_when_set",
			setReady:       true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not_ready_initially",
			setReady:       false,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			cfg := &Config{
				Port:          "0",
				Logger:        logger,
				HealthChecker: hc,
			}

			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		t.Error("Metrics endpoint missing Content-Type header")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics response body: %v", err)
	}
	if len(body) == 0 {
		t.Error("Metrics endpoint returned empty body")
	}
}

func TestPositionsEndpoint_ReturnsEmptySetWithNoFills(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		Accountant:    newTestAccountant(t),
		Store:         store.NewConsole(logger),
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/positions", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Positions endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var positions []PositionView
	if err := json.NewDecoder(resp.Body).Decode(&positions); err != nil {
		t.Fatalf("Failed to decode positions response: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("expected no positions, got %d", len(positions))
	}
}

func TestPositionsEndpoint_MethodNotAllowed(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		Accountant:    newTestAccountant(t),
		Store:         store.NewConsole(logger),
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodPost, "/positions", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Method not allowed status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestRecentDecisionsEndpoint_RejectsInvalidLimit(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		Accountant:    newTestAccountant(t),
		Store:         store.NewConsole(logger),
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/decisions/recent?limit=not-a-number", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid limit status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Error response missing error message")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_Middleware(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Middleware test status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestServer_Timeouts(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "8080",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want %v", server.server.ReadTimeout, 15*time.Second)
	}
	if server.server.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want %v", server.server.ReadHeaderTimeout, 10*time.Second)
	}
	if server.server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want %v", server.server.WriteTimeout, 15*time.Second)
	}
	if server.server.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want %v", server.server.IdleTimeout, 60*time.Second)
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Non-existent route status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestDebugEndpoints_OnlyWithComponents(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	tests := []struct {
		name           string
		includeDebug   bool
		expectEndpoint bool
	}{
		{name: "components_provided", includeDebug: true, expectEndpoint: true},
		{name: "components_missing", includeDebug: false, expectEndpoint: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:          "0",
				Logger:        logger,
				HealthChecker: healthChecker,
			}

			if tt.includeDebug {
				cfg.Accountant = newTestAccountant(t)
				cfg.Store = store.NewConsole(logger)
			}

			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/positions", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if tt.expectEndpoint {
				if resp.StatusCode != http.StatusOK {
					t.Errorf("expected endpoint to exist, got status %d", resp.StatusCode)
				}
			} else if resp.StatusCode != http.StatusNotFound {
				t.Errorf("expected route not found, got status %d", resp.StatusCode)
			}
		})
	}
}
