package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/natter/internal/errors"
	"github.com/allisson/natter/internal/httputil"
)

// contentSecurityPolicy forbids every kind of active content in API responses.
const contentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'; sandbox"

// CustomLoggerMiddleware logs each request with its request id once the handler chain returns.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", requestid.Get(c)),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", attrs...)
		default:
			logger.Info("http request", attrs...)
		}
	}
}

// SecurityHeadersMiddleware sets the hardening headers every API response carries.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Cache-Control", "no-store")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		c.Next()
	}
}

// RequireJSONMiddleware rejects request bodies that are not declared as application/json
// with 415 Unsupported Media Type.
func RequireJSONMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		if c.ContentType() != gin.MIMEJSON {
			logger.Debug("unsupported content type", slog.String("content_type", c.ContentType()))
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, httputil.ErrorResponse{
				Error:   "unsupported_media_type",
				Message: "Only application/json request bodies are supported",
			})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware throttles all requests through one shared token bucket. Rejected
// requests get 429 with a Retry-After header in whole seconds.
func RateLimitMiddleware(limiter *rate.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reservation := limiter.Reserve()
		if !reservation.OK() {
			c.Header("Retry-After", "1")
			httputil.HandleErrorGin(c, apperrors.ErrTooManyRequests, logger)
			return
		}

		delay := reservation.Delay()
		if delay > 0 {
			reservation.Cancel()
			retryAfter := int(math.Ceil(delay.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
			httputil.HandleErrorGin(c, apperrors.ErrTooManyRequests, logger)
			return
		}

		c.Next()
	}
}
