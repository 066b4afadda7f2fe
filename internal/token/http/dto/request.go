// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/natter/internal/validation"
)

// maxExpiresInSeconds caps requested capability lifetimes at one year.
const maxExpiresInSeconds = 365 * 24 * 60 * 60

// MintCapabilityRequest contains the parameters for minting a capability over a resource path.
type MintCapabilityRequest struct {
	Path        string `json:"path"`
	Permissions string `json:"permissions"`
	// ExpiresIn is the lifetime in seconds. Zero selects the configured default.
	ExpiresIn int64 `json:"expires_in"`
}

// Validate checks if the mint capability request is valid.
func (r *MintCapabilityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path,
			validation.Required,
			customValidation.ResourcePath,
			validation.Length(1, 1000),
		),
		validation.Field(&r.Permissions,
			validation.Required,
			customValidation.Permissions,
		),
		validation.Field(&r.ExpiresIn,
			validation.Min(int64(0)),
			validation.Max(int64(maxExpiresInSeconds)),
		),
	)
}

// ShareCapabilityRequest derives a narrower capability from one the caller already holds.
type ShareCapabilityRequest struct {
	URI string `json:"uri"`
	// Permissions defaults to the permissions of the held capability when empty.
	Permissions string `json:"permissions"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Validate checks if the share capability request is valid.
func (r *ShareCapabilityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.URI,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 4096),
		),
		validation.Field(&r.Permissions,
			customValidation.Permissions,
		),
		validation.Field(&r.ExpiresIn,
			validation.Min(int64(0)),
			validation.Max(int64(maxExpiresInSeconds)),
		),
	)
}

// RevokeCapabilityRequest contains the capability URI to revoke.
type RevokeCapabilityRequest struct {
	URI string `json:"uri"`
}

// Validate checks if the revoke capability request is valid.
func (r *RevokeCapabilityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.URI,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 4096),
		),
	)
}
