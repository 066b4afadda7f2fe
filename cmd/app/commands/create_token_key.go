package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tokenService "github.com/allisson/natter/internal/token/service"
)

// RunCreateTokenKey generates a fresh integrity key for TOKEN_KEY. With keyURI the key is
// encrypted through the KMS keeper and only the ciphertext is printed.
func RunCreateTokenKey(
	ctx context.Context,
	keyService tokenService.KeyService,
	logger *slog.Logger,
	writer io.Writer,
	keyURI string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	key, err := keyService.GenerateKey(ctx, keyURI)
	if err != nil {
		return fmt.Errorf("failed to generate token key: %w", err)
	}

	logger.Info("token key generated", slog.Bool("kms", keyURI != ""))

	if format == formatJSON {
		return writeJSON(writer, map[string]any{
			"token_key":   key,
			"kms_key_uri": keyURI,
		})
	}

	_, _ = fmt.Fprintln(writer, "# Add to your environment:")
	_, _ = fmt.Fprintf(writer, "TOKEN_KEY=%s\n", key)
	if keyURI != "" {
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=%s\n", keyURI)
	}
	return nil
}
