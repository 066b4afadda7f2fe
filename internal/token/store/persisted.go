package store

import (
	"context"
	"time"

	apperrors "github.com/allisson/natter/internal/errors"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
	tokenService "github.com/allisson/natter/internal/token/service"
)

// persistedStore keeps claims in a Repository keyed by the digest of a random identifier.
type persistedStore[T tokenDomain.Expirer] struct {
	repo         Repository[T]
	tokenService tokenService.TokenService
	now          func() time.Time
}

// NewPersistedStore creates a confidential store backed by repo.
func NewPersistedStore[T tokenDomain.Expirer](
	repo Repository[T],
	tokenService tokenService.TokenService,
) ConfidentialStore[T] {
	return &persistedStore[T]{
		repo:         repo,
		tokenService: tokenService,
		now:          time.Now,
	}
}

func (s *persistedStore[T]) Confidential() {}

// Create stores the claim under the digest of a fresh identifier and returns the identifier.
func (s *persistedStore[T]) Create(ctx context.Context, claim T) (string, error) {
	plainToken, tokenHash, err := s.tokenService.GenerateToken()
	if err != nil {
		return "", err
	}

	if err := s.repo.Create(ctx, tokenHash, claim); err != nil {
		return "", err
	}

	return plainToken, nil
}

// Read loads the claim and re-checks its expiry, independent of the sweep.
func (s *persistedStore[T]) Read(ctx context.Context, tokenID string) (T, error) {
	var zero T
	if tokenID == "" {
		return zero, tokenDomain.ErrTokenNotFound
	}

	claim, err := s.repo.Get(ctx, s.tokenService.HashToken(tokenID))
	if err != nil {
		if apperrors.Is(err, tokenDomain.ErrTokenNotFound) {
			return zero, tokenDomain.ErrTokenNotFound
		}
		return zero, err
	}

	if tokenDomain.IsExpired(claim, s.now()) {
		return zero, tokenDomain.ErrTokenExpired
	}

	return claim, nil
}

// Revoke deletes the row for tokenID, if any.
func (s *persistedStore[T]) Revoke(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	return s.repo.Delete(ctx, s.tokenService.HashToken(tokenID))
}
