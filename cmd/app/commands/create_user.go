package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	userUsecase "github.com/allisson/natter/internal/user/usecase"
)

// RunCreateUser registers a user able to log in with HTTP Basic credentials. When password
// is empty it is read from the first line of the command input.
func RunCreateUser(
	ctx context.Context,
	useCase userUsecase.UseCase,
	logger *slog.Logger,
	tuple IOTuple,
	username string,
	password string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if password == "" {
		var err error
		password, err = promptPassword(tuple)
		if err != nil {
			return err
		}
	}

	user, err := useCase.RegisterUser(ctx, userUsecase.RegisterUserInput{
		Username: username,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("user created", slog.String("id", user.ID.String()), slog.String("username", user.Username))

	if format == formatJSON {
		return writeJSON(tuple.Writer, map[string]any{
			"id":         user.ID.String(),
			"username":   user.Username,
			"created_at": user.CreatedAt,
		})
	}

	_, _ = fmt.Fprintf(tuple.Writer, "User %q created with id %s\n", user.Username, user.ID)
	return nil
}

func promptPassword(tuple IOTuple) (string, error) {
	_, _ = fmt.Fprint(tuple.Writer, "Password: ")

	line, err := bufio.NewReader(tuple.Reader).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}
