// Package store implements the token store contract and its composable variants:
// persisted (confidential) stores, the stateless self-contained store, and the two
// integrity wrappers that turn them into authenticated or secure stores.
//
// Wrappers only ever talk to their delegate through Store, so any wrapper can be
// dropped onto any delegate, including test doubles.
package store

import (
	"context"
)

// Store is the contract shared by every token store.
//
// Read returns domain.ErrTokenNotFound (or domain.ErrTokenExpired, which wraps it) for
// unknown, expired, malformed or tampered identifiers, without telling them apart.
// Revoke of an unknown identifier is a silent no-op.
type Store[T any] interface {
	Create(ctx context.Context, claim T) (string, error)
	Read(ctx context.Context, tokenID string) (T, error)
	Revoke(ctx context.Context, tokenID string) error
}

// ConfidentialStore keeps claims server-side and hands out unguessable references.
type ConfidentialStore[T any] interface {
	Store[T]
	Confidential()
}

// AuthenticatedStore only accepts identifiers it can prove it issued.
type AuthenticatedStore[T any] interface {
	Store[T]
	Authenticated()
}

// SecureStore is both confidential and authenticated.
type SecureStore[T any] interface {
	ConfidentialStore[T]
	AuthenticatedStore[T]
}

// Repository persists claims keyed by the digest of their identifier.
type Repository[T any] interface {
	// Create inserts a new row. A duplicate digest is an error.
	Create(ctx context.Context, tokenHash string, claim T) error

	// Get returns the claim stored under tokenHash or domain.ErrTokenNotFound.
	Get(ctx context.Context, tokenHash string) (T, error)

	// Delete removes the row stored under tokenHash. Missing rows are not an error.
	Delete(ctx context.Context, tokenHash string) error
}

// CaveatStore is implemented by stores whose credentials carry first-party caveats next to
// the claim. A credential derived from another must keep every caveat of its parent.
type CaveatStore[T any] interface {
	// Caveats verifies tokenID and returns its first-party caveats. Identifiers that do not
	// verify report domain.ErrTokenNotFound.
	Caveats(tokenID string) ([]string, error)

	// CreateWithCaveats issues a credential for claim restricted by caveats.
	CreateWithCaveats(ctx context.Context, claim T, caveats []string) (string, error)
}
