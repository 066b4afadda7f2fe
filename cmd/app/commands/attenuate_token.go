package commands

import (
	"fmt"
	"io"
	"time"

	tokenStore "github.com/allisson/natter/internal/token/store"
)

// AttenuateOptions lists the caveats to append. Zero values are skipped.
type AttenuateOptions struct {
	Method    string
	ExpiresIn time.Duration
	Since     string
}

// RunAttenuateToken narrows a macaroon credential offline by appending first-party caveats.
// No key is needed.
func RunAttenuateToken(writer io.Writer, token string, opts AttenuateOptions, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var caveats []string
	if opts.Method != "" {
		caveats = append(caveats, tokenStore.MethodCaveat(opts.Method))
	}
	if opts.ExpiresIn > 0 {
		caveats = append(caveats, tokenStore.ExpiryCaveat(time.Now().Add(opts.ExpiresIn)))
	}
	if opts.Since != "" {
		since, err := time.Parse(time.RFC3339, opts.Since)
		if err != nil {
			return fmt.Errorf("invalid since value %q: must be RFC3339", opts.Since)
		}
		caveats = append(caveats, tokenStore.SinceCaveat(since))
	}

	if len(caveats) == 0 {
		return fmt.Errorf("at least one of --method, --expires-in or --since is required")
	}

	attenuated, err := tokenStore.Attenuate(token, caveats...)
	if err != nil {
		return fmt.Errorf("failed to attenuate token: %w", err)
	}

	if format == formatJSON {
		return writeJSON(writer, map[string]any{
			"token":   attenuated,
			"caveats": caveats,
		})
	}

	_, _ = fmt.Fprintln(writer, attenuated)
	return nil
}
