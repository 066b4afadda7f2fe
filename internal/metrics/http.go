package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Credential labels recorded on HTTP metrics. Only the kind of credential is
// recorded, never its value.
const (
	credentialNone       = "none"
	credentialBasic      = "basic"
	credentialBearer     = "bearer"
	credentialCapability = "capability"
)

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meterProvider metric.MeterProvider, namespace string) (*httpMetrics, error) {
	meter := meterProvider.Meter(namespace)

	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests by route and presented credential"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return &httpMetrics{requests: requests, duration: duration}, nil
}

// HTTPMetricsMiddleware returns a Gin middleware that counts requests and times them by
// method, route pattern, status code and credential kind. Route patterns such as
// /v1/resources/*path keep capability paths and their query tokens out of the labels.
// A no-op middleware is returned when the instruments cannot be created.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	m, err := newHTTPMetrics(meterProvider, namespace)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		credential := credentialKind(c.Request)

		c.Next()

		opt := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", sanitizePath(c.FullPath())),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
			attribute.String("credential", credential),
		)
		ctx := c.Request.Context()
		m.requests.Add(ctx, 1, opt)
		m.duration.Record(ctx, time.Since(start).Seconds(), opt)
	}
}

// credentialKind reports which kind of credential a request presents.
func credentialKind(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	switch {
	case len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer "):
		return credentialBearer
	case len(auth) > len("Basic ") && strings.EqualFold(auth[:len("Basic ")], "Basic "):
		return credentialBasic
	case r.URL.Query().Has("access_token"):
		return credentialCapability
	default:
		return credentialNone
	}
}

// sanitizePath returns the matched route pattern, or "unknown" when no route matched.
func sanitizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
