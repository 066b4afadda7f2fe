// Package usecase implements the user business logic: registration and the password
// check behind HTTP Basic authentication.
package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/allisson/go-pwdhash"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/natter/internal/errors"
	"github.com/allisson/natter/internal/user/domain"
	appValidation "github.com/allisson/natter/internal/validation"
)

// RegisterUserInput contains the input data for user registration
type RegisterUserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UseCase defines the interface for user business logic operations
type UseCase interface {
	RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, error)
	// Authenticate verifies a username and password and returns the principal.
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// UserRepository interface defines user repository operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// UserUseCase handles user-related business logic
type UserUseCase struct {
	userRepo       UserRepository
	passwordHasher *pwdhash.PasswordHasher
	logger         *slog.Logger
}

// NewPasswordHasher creates the argon2id hasher used for user passwords.
func NewPasswordHasher() (*pwdhash.PasswordHasher, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}
	return hasher, nil
}

// NewUserUseCase creates a new UserUseCase
func NewUserUseCase(
	userRepo UserRepository,
	passwordHasher *pwdhash.PasswordHasher,
	logger *slog.Logger,
) *UserUseCase {
	return &UserUseCase{
		userRepo:       userRepo,
		passwordHasher: passwordHasher,
		logger:         logger,
	}
}

func (uc *UserUseCase) validateRegisterUserInput(input RegisterUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.Username,
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{MinLength: 8},
		),
	)
	return appValidation.WrapValidationError(err)
}

// RegisterUser registers a new user with an argon2id password hash
func (uc *UserUseCase) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := uc.validateRegisterUserInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.passwordHasher.Hash([]byte(input.Password))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	user := &domain.User{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     input.Username,
		PasswordHash: hashedPassword,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.logger.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate returns the username as principal when password matches the stored hash.
// Unknown users still pay for one hash computation so both failures take similar time.
func (uc *UserUseCase) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.Is(err, domain.ErrUserNotFound) {
			_, _ = uc.passwordHasher.Hash([]byte(password))
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	ok, err := uc.passwordHasher.Verify([]byte(password), user.PasswordHash)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to verify password")
	}
	if !ok {
		return "", domain.ErrInvalidCredentials
	}

	return user.Username, nil
}
