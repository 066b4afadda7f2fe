package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Operation outcomes recorded by TokenMetrics.
const (
	StatusSuccess = "success"
	StatusAbsent  = "absent"
	StatusError   = "error"
)

// TokenMetrics records token store activity.
//
// kind is the token family ("session", "capability"), operation is one of
// "create", "read" or "revoke".
type TokenMetrics interface {
	RecordOperation(ctx context.Context, kind, operation, status string)
	RecordDuration(ctx context.Context, kind, operation string, duration time.Duration, status string)
	RecordSwept(ctx context.Context, kind string, count int64)
}

type tokenMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	sweptCounter     metric.Int64Counter
}

// NewTokenMetrics creates a TokenMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "natter").
func NewTokenMetrics(meterProvider metric.MeterProvider, namespace string) (TokenMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_token_operations_total", namespace),
		metric.WithDescription("Total number of token store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_token_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of token store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	sweptCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_tokens_swept_total", namespace),
		metric.WithDescription("Total number of expired tokens deleted by the sweep"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create swept counter: %w", err)
	}

	return &tokenMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		sweptCounter:     sweptCounter,
	}, nil
}

func (m *tokenMetrics) RecordOperation(ctx context.Context, kind, operation, status string) {
	m.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (m *tokenMetrics) RecordDuration(
	ctx context.Context,
	kind, operation string,
	duration time.Duration,
	status string,
) {
	m.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (m *tokenMetrics) RecordSwept(ctx context.Context, kind string, count int64) {
	m.sweptCounter.Add(ctx, count, metric.WithAttributes(attribute.String("kind", kind)))
}

// NoOpTokenMetrics is a no-op implementation of TokenMetrics for when metrics are disabled.
type NoOpTokenMetrics struct{}

// NewNoOpTokenMetrics creates a no-op TokenMetrics implementation.
func NewNoOpTokenMetrics() TokenMetrics {
	return &NoOpTokenMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpTokenMetrics) RecordOperation(ctx context.Context, kind, operation, status string) {}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpTokenMetrics) RecordDuration(
	ctx context.Context,
	kind, operation string,
	duration time.Duration,
	status string,
) {
}

// RecordSwept does nothing when metrics are disabled.
func (n *NoOpTokenMetrics) RecordSwept(ctx context.Context, kind string, count int64) {}
