package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tokenUsecase "github.com/allisson/natter/internal/token/usecase"
)

// RunCleanExpiredTokens runs one expired token sweep over every persisted store.
// With dryRun it only reports how many tokens would be removed.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(
	ctx context.Context,
	useCase tokenUsecase.CleanupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	dryRun bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("cleaning expired tokens", slog.Bool("dry_run", dryRun))

	count, err := useCase.CleanupExpired(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	if format == formatJSON {
		if err := writeJSON(writer, map[string]any{
			"count":   count,
			"dry_run": dryRun,
		}); err != nil {
			return err
		}
	} else {
		outputCleanExpiredText(writer, count, dryRun)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}

func outputCleanExpiredText(w io.Writer, count int64, dryRun bool) {
	if dryRun {
		_, _ = fmt.Fprintf(w, "Dry-run mode: Would delete %d expired token(s)\n", count)
		return
	}
	_, _ = fmt.Fprintf(w, "Successfully deleted %d expired token(s)\n", count)
}
