package dto

import (
	"time"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// LoginResponse contains the session token minted at login.
// SECURITY: The token is only returned once and must be saved securely.
type LoginResponse struct {
	Token     string    `json:"token"` //nolint:gosec // returned once on login
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse describes the session attached to the current request.
type SessionResponse struct {
	Principal  string            `json:"principal"`
	Attributes map[string]string `json:"attributes"`
}

// MapSessionToResponse builds a session response from the request principal and attributes.
func MapSessionToResponse(principal string, attributes *tokenDomain.Attributes) SessionResponse {
	return SessionResponse{
		Principal:  principal,
		Attributes: attributes.Map(),
	}
}

// CapabilityResponse contains a minted capability URI.
type CapabilityResponse struct {
	URI         string     `json:"uri"`
	Permissions string     `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// MapCapabilityToResponse converts a minted claim and its URI to an API response.
func MapCapabilityToResponse(uri string, claim *tokenDomain.CapabilityClaim) CapabilityResponse {
	return CapabilityResponse{
		URI:         uri,
		Permissions: claim.Permissions.String(),
		ExpiresAt:   claim.Expiry,
	}
}

// ResourceResponse reports the access granted on a guarded resource.
type ResourceResponse struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Permissions string `json:"permissions"`
}
