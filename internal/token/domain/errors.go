package domain

import (
	apperrors "github.com/allisson/natter/internal/errors"
)

// Token errors.
var (
	// ErrTokenNotFound is the single "absent" outcome of a token read. Unknown, malformed,
	// expired and tampered identifiers all collapse into it.
	ErrTokenNotFound = apperrors.Wrap(apperrors.ErrNotFound, "token not found")

	// ErrTokenExpired is returned when a claim exists but its expiry has passed.
	// It wraps ErrTokenNotFound so callers that only care about absence need no extra case.
	ErrTokenExpired = apperrors.Wrap(ErrTokenNotFound, "token expired")

	// ErrInvalidPermissions indicates a malformed permission pattern.
	ErrInvalidPermissions = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid permissions")

	// ErrMissingCredential indicates a request without the expected credential.
	ErrMissingCredential = apperrors.Wrap(apperrors.ErrInvalidInput, "missing credential")

	// ErrMalformedCredential indicates a credential that is present but cannot be parsed.
	ErrMalformedCredential = apperrors.Wrap(apperrors.ErrInvalidInput, "malformed credential")

	// ErrInsufficientPermissions indicates the resolved permissions do not cover the request.
	ErrInsufficientPermissions = apperrors.Wrap(apperrors.ErrForbidden, "insufficient permissions")
)

// ErrInvalidTokenKey indicates the shared token key is missing, undecodable or too short.
var ErrInvalidTokenKey = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid token key")
