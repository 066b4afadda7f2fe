package store

import (
	"context"
	"time"

	apperrors "github.com/allisson/natter/internal/errors"
	"github.com/allisson/natter/internal/metrics"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// storeWithMetrics decorates an AuthenticatedStore with metrics instrumentation.
type storeWithMetrics[T any] struct {
	next    AuthenticatedStore[T]
	metrics metrics.TokenMetrics
	kind    string
}

// WithMetrics wraps store with metrics recording under the given token kind.
func WithMetrics[T any](next AuthenticatedStore[T], m metrics.TokenMetrics, kind string) AuthenticatedStore[T] {
	return &storeWithMetrics[T]{
		next:    next,
		metrics: m,
		kind:    kind,
	}
}

func (s *storeWithMetrics[T]) Authenticated() {}

// Create records metrics for token issuance.
func (s *storeWithMetrics[T]) Create(ctx context.Context, claim T) (string, error) {
	start := time.Now()
	tokenID, err := s.next.Create(ctx, claim)
	s.record(ctx, "create", start, err)
	return tokenID, err
}

// Read records metrics for token lookups. Absent tokens are counted apart from failures.
func (s *storeWithMetrics[T]) Read(ctx context.Context, tokenID string) (T, error) {
	start := time.Now()
	claim, err := s.next.Read(ctx, tokenID)
	s.record(ctx, "read", start, err)
	return claim, err
}

// Revoke records metrics for token revocation.
func (s *storeWithMetrics[T]) Revoke(ctx context.Context, tokenID string) error {
	start := time.Now()
	err := s.next.Revoke(ctx, tokenID)
	s.record(ctx, "revoke", start, err)
	return err
}

// Caveats forwards to the wrapped store. Stores without caveats report none.
func (s *storeWithMetrics[T]) Caveats(tokenID string) ([]string, error) {
	next, ok := s.next.(CaveatStore[T])
	if !ok {
		return nil, nil
	}
	return next.Caveats(tokenID)
}

// CreateWithCaveats records metrics for token issuance. Caveats need a wrapped store that
// carries them.
func (s *storeWithMetrics[T]) CreateWithCaveats(ctx context.Context, claim T, caveats []string) (string, error) {
	next, ok := s.next.(CaveatStore[T])
	if !ok {
		if len(caveats) > 0 {
			return "", errCaveatsUnsupported
		}
		return s.Create(ctx, claim)
	}

	start := time.Now()
	tokenID, err := next.CreateWithCaveats(ctx, claim, caveats)
	s.record(ctx, "create", start, err)
	return tokenID, err
}

func (s *storeWithMetrics[T]) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	switch {
	case err == nil:
	case apperrors.Is(err, tokenDomain.ErrTokenNotFound):
		status = metrics.StatusAbsent
	default:
		status = metrics.StatusError
	}

	s.metrics.RecordOperation(ctx, s.kind, operation, status)
	s.metrics.RecordDuration(ctx, s.kind, operation, time.Since(start), status)
}
