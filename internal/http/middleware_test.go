package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/test", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "0", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, contentSecurityPolicy, w.Header().Get("Content-Security-Policy"))
}

func TestRequireJSONMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequireJSONMiddleware(discardLogger()))
	router.GET("/test", okHandler)
	router.POST("/test", okHandler)
	router.PUT("/test", okHandler)
	router.DELETE("/test", okHandler)

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"Success_PostJSON", http.MethodPost, "application/json", http.StatusOK},
		{"Success_PostJSONWithCharset", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"Success_GetWithoutContentType", http.MethodGet, "", http.StatusOK},
		{"Success_DeleteWithoutContentType", http.MethodDelete, "", http.StatusOK},
		{"Error_PostForm", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"Error_PostWithoutContentType", http.MethodPost, "", http.StatusUnsupportedMediaType},
		{"Error_PutText", http.MethodPut, "text/plain", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("Success_WithinBurst", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(2), 3), discardLogger()))
		router.GET("/test", okHandler)

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("Error_ExceedsBurst", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(0.5), 1), discardLogger()))
		router.GET("/test", okHandler)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, retryAfter, 1)
		assert.LessOrEqual(t, retryAfter, 2)
	})

	t.Run("Error_ZeroLimit", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitMiddleware(rate.NewLimiter(0, 0), discardLogger()))
		router.GET("/test", okHandler)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})
}

func TestReadinessHandler_Ready(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mock.ExpectPing()

	server := NewServer(db, "localhost", 0, discardLogger())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.readinessHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","components":{"database":"ok"}}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
