package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/natter/internal/database"
	apperrors "github.com/allisson/natter/internal/errors"
	"github.com/allisson/natter/internal/metrics"
)

type cleanupUseCase struct {
	txManager database.TxManager
	targets   []SweepTarget
	metrics   metrics.TokenMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// CleanupExpired runs every target inside one transaction so a dry run and a real run
// see the same cutoff.
func (c *cleanupUseCase) CleanupExpired(ctx context.Context, dryRun bool) (int64, error) {
	now := c.now().UTC()
	counts := make([]int64, len(c.targets))

	err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		for i, target := range c.targets {
			var (
				count int64
				err   error
			)
			if dryRun {
				count, err = target.Repo.CountExpired(ctx, now)
			} else {
				count, err = target.Repo.DeleteExpired(ctx, now)
			}
			if err != nil {
				return apperrors.Wrapf(err, "failed to clean up expired %s tokens", target.Kind)
			}
			counts[i] = count
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for i, target := range c.targets {
		total += counts[i]
		if !dryRun {
			c.metrics.RecordSwept(ctx, target.Kind, counts[i])
		}
		c.logger.Debug("expired tokens processed",
			slog.String("kind", target.Kind),
			slog.Int64("count", counts[i]),
			slog.Bool("dry_run", dryRun),
		)
	}

	return total, nil
}

// NewCleanupUseCase creates a CleanupUseCase over targets.
func NewCleanupUseCase(
	txManager database.TxManager,
	tokenMetrics metrics.TokenMetrics,
	logger *slog.Logger,
	targets ...SweepTarget,
) CleanupUseCase {
	return &cleanupUseCase{
		txManager: txManager,
		targets:   targets,
		metrics:   tokenMetrics,
		logger:    logger,
		now:       time.Now,
	}
}
