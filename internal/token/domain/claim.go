// Package domain defines the token claims, permission sets and errors shared by the
// token stores and controllers.
package domain

import (
	"time"
)

// Expirer is implemented by claims that may carry an expiry.
type Expirer interface {
	// ExpiresAt returns the expiry and whether the claim has one.
	ExpiresAt() (time.Time, bool)
}

// IsExpired reports whether c carries an expiry that is not after now.
func IsExpired(c Expirer, now time.Time) bool {
	expiry, ok := c.ExpiresAt()
	return ok && !now.Before(expiry)
}

// SessionClaim asserts who the bearer is until Expiry.
type SessionClaim struct {
	Principal  string
	Expiry     time.Time
	Attributes *Attributes
}

// NewSessionClaim creates a session claim with an empty attribute map.
func NewSessionClaim(principal string, expiry time.Time) *SessionClaim {
	return &SessionClaim{
		Principal:  principal,
		Expiry:     expiry,
		Attributes: NewAttributes(nil),
	}
}

// ExpiresAt implements Expirer. Sessions always expire.
func (c *SessionClaim) ExpiresAt() (time.Time, bool) {
	return c.Expiry, true
}

// CapabilityClaim asserts what the bearer may do to exactly one path.
type CapabilityClaim struct {
	Path        string
	Permissions Permissions
	Expiry      *time.Time
}

// NewCapabilityClaim creates a capability claim. A nil expiry means the capability
// lives until revoked.
func NewCapabilityClaim(path string, perms Permissions, expiry *time.Time) *CapabilityClaim {
	return &CapabilityClaim{
		Path:        path,
		Permissions: perms,
		Expiry:      expiry,
	}
}

// ExpiresAt implements Expirer.
func (c *CapabilityClaim) ExpiresAt() (time.Time, bool) {
	if c.Expiry == nil {
		return time.Time{}, false
	}
	return *c.Expiry, true
}
