package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/natter/cmd/app/commands"
	"github.com/allisson/natter/internal/app"
	"github.com/allisson/natter/internal/config"
	tokenService "github.com/allisson/natter/internal/token/service"
)

func getTokenCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "clean-expired-tokens",
			Usage: "Delete expired session and capability tokens once",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many tokens would be deleted without deleting",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cleanupUseCase, err := container.CleanupUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanExpiredTokens(
					ctx,
					cleanupUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "create-token-key",
			Usage: "Generate a new TOKEN_KEY, optionally encrypted through KMS",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "kms-key-uri",
					Aliases: []string{"k"},
					Sources: cli.EnvVars("KMS_KEY_URI"),
					Usage:   "gocloud.dev/secrets keeper URI used to encrypt the key",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())

				return commands.RunCreateTokenKey(
					ctx,
					tokenService.NewKeyService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-key-uri"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "attenuate-token",
			Usage: "Append caveats to a macaroon token without the signing key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "token",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Macaroon token to attenuate",
				},
				&cli.StringFlag{
					Name:    "method",
					Aliases: []string{"m"},
					Usage:   "Restrict the token to one HTTP method",
				},
				&cli.DurationFlag{
					Name:    "expires-in",
					Aliases: []string{"e"},
					Usage:   "Restrict the token to requests within this duration from now",
				},
				&cli.StringFlag{
					Name:    "since",
					Aliases: []string{"s"},
					Usage:   "Restrict the since query parameter to after this RFC3339 time",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunAttenuateToken(
					commands.DefaultIO().Writer,
					cmd.String("token"),
					commands.AttenuateOptions{
						Method:    cmd.String("method"),
						ExpiresIn: cmd.Duration("expires-in"),
						Since:     cmd.String("since"),
					},
					cmd.String("format"),
				)
			},
		},
	}
}
