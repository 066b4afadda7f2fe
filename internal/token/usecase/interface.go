// Package usecase implements the maintenance operations of the token stores: the
// one-shot expired-token cleanup and the periodic sweeper that runs it in the background.
package usecase

import (
	"context"
	"time"
)

// ExpiredTokenRepository is implemented by the session and capability repositories.
type ExpiredTokenRepository interface {
	// DeleteExpired deletes rows whose expiry is not after now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// CountExpired counts the rows DeleteExpired would remove without deleting them.
	CountExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepTarget names a repository swept by the cleanup use case. Kind labels logs and metrics.
type SweepTarget struct {
	Kind string
	Repo ExpiredTokenRepository
}

// CleanupUseCase removes expired claims from every persisted token store.
type CleanupUseCase interface {
	// CleanupExpired deletes expired rows from every target and returns the total count.
	// With dryRun it only counts them.
	CleanupExpired(ctx context.Context, dryRun bool) (int64, error)
}
