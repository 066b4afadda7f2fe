// Package http provides HTTP server implementation and request handlers.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/natter/internal/config"
	"github.com/allisson/natter/internal/metrics"
	tokenDTO "github.com/allisson/natter/internal/token/http/dto"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// createTestServer creates a test server with a discarding logger.
func createTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(nil, "localhost", 0, logger)
}

// mintCapability logs alice in and mints a capability for path with perms.
func mintCapability(t *testing.T, router http.Handler, path, perms string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/v1/sessions", nil, func(r *http.Request) {
		r.SetBasicAuth("alice", "changeit123")
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var login tokenDTO.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = doJSON(t, router, http.MethodPost, "/v1/capabilities", tokenDTO.MintCapabilityRequest{
		Path:        path,
		Permissions: perms,
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+login.Token)
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var capability tokenDTO.CapabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &capability))
	return capability.URI
}

// TestHealthHandler tests the health check endpoint handler.
func TestHealthHandler(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

// TestReadinessHandler_NotReady_NilDB tests the readiness endpoint when DB is nil.
func TestReadinessHandler_NotReady_NilDB(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	server.readinessHandler(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "not_ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", components["database"])
}

// TestRouter_SecurityHeaders checks that every kind of response carries the hardening headers,
// including rejections raised before any handler runs.
func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{name: "health", method: http.MethodGet, target: "/health", status: http.StatusOK},
		{name: "not ready", method: http.MethodGet, target: "/ready", status: http.StatusServiceUnavailable},
		{name: "unauthenticated", method: http.MethodGet, target: "/v1/sessions/me", status: http.StatusUnauthorized},
		{
			name:   "forbidden resource",
			method: http.MethodGet,
			target: "/v1/resources/spaces/1/messages",
			status: http.StatusForbidden,
		},
		{name: "not found", method: http.MethodGet, target: "/nonexistent", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, tt.method, tt.target, nil, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, "0", w.Header().Get("X-XSS-Protection"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
		})
	}
}

// TestRouter_RequireJSON checks that write requests without a JSON body are refused with 415
// before authentication or capability checks run.
func TestRouter_RequireJSON(t *testing.T) {
	router := newTestRouter(t)
	uri := mintCapability(t, router, "/spaces/1/messages", "rwd")

	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		status      int
	}{
		{name: "share as form", method: http.MethodPost, target: "/v1/capabilities/share",
			contentType: "application/x-www-form-urlencoded", status: http.StatusUnsupportedMediaType},
		{name: "login as text", method: http.MethodPost, target: "/v1/sessions",
			contentType: "text/plain", status: http.StatusUnsupportedMediaType},
		{name: "resource put without type", method: http.MethodPut, target: uri,
			contentType: "", status: http.StatusUnsupportedMediaType},
		{name: "resource post as json", method: http.MethodPost, target: uri,
			contentType: "application/json", status: http.StatusOK},
		{name: "resource delete without type", method: http.MethodDelete, target: uri,
			contentType: "", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, bytes.NewBufferString(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

// TestRouter_ResourceGates checks every method gate of /v1/resources against every
// permission pattern a capability can carry.
func TestRouter_ResourceGates(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		perms   string
		allowed map[string]bool
	}{
		{perms: "r", allowed: map[string]bool{http.MethodGet: true}},
		{perms: "w", allowed: map[string]bool{http.MethodPost: true, http.MethodPut: true}},
		{perms: "d", allowed: map[string]bool{http.MethodDelete: true}},
		{perms: "rw", allowed: map[string]bool{http.MethodGet: true, http.MethodPost: true, http.MethodPut: true}},
		{perms: "rwd", allowed: map[string]bool{
			http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodDelete: true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.perms, func(t *testing.T) {
			uri := mintCapability(t, router, "/spaces/1/messages", tt.perms)

			for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
				want := http.StatusForbidden
				if tt.allowed[method] {
					want = http.StatusOK
				}
				w := doJSON(t, router, method, uri, map[string]string{}, nil)
				assert.Equal(t, want, w.Code, "%s with %q", method, tt.perms)
			}
		})
	}

	t.Run("capability for another path grants nothing", func(t *testing.T) {
		uri := mintCapability(t, router, "/spaces/1/messages", "rwd")
		other := "/v1/resources/spaces/2/messages?" + uri[len("/v1/resources/spaces/1/messages?"):]

		w := doJSON(t, router, http.MethodGet, other, nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unrouted method is not found", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPatch, "/v1/resources/spaces/1/messages", map[string]string{}, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestRouter_RateLimit checks the global throttle installed by SetupRouter.
func TestRouter_RateLimit(t *testing.T) {
	router := newTestServer(t, &config.Config{
		RateLimitEnabled:        true,
		RateLimitRequestsPerSec: 0.001,
		RateLimitBurst:          1,
	}).GetHandler()

	w := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

// TestRouter_RequestID verifies the X-Request-Id header is a UUIDv7 on API responses.
func TestRouter_RequestID(t *testing.T) {
	w := doJSON(t, newTestRouter(t), http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	requestID := w.Header().Get("X-Request-Id")
	parsed, err := uuid.Parse(requestID)
	require.NoError(t, err, "X-Request-Id should be a valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

// TestServer_ShutdownGracefully tests graceful server shutdown.
func TestServer_ShutdownGracefully(t *testing.T) {
	server := newTestServer(t, &config.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	assert.NoError(t, err)

	select {
	case err := <-errChan:
		t.Fatalf("server startup failed: %v", err)
	default:
	}
}

// TestMetricsServer_Endpoints tests the metrics server endpoints.
func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider()
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsServer.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/me", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestMetricsServer_NilProvider tests that a metrics server without a provider serves nothing.
func TestMetricsServer_NilProvider(t *testing.T) {
	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), nil)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestServer_NoMetricsEndpoint tests that the API router does not expose /metrics.
func TestServer_NoMetricsEndpoint(t *testing.T) {
	w := doJSON(t, newTestRouter(t), http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
