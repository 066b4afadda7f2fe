// Package service provides the technical services behind the token stores: identifier
// generation, digest-at-rest hashing and shared key provisioning.
package service

import (
	"context"
)

// TokenService defines operations for token identifier generation and hashing.
type TokenService interface {
	// GenerateToken creates a new 20-byte random identifier rendered as unpadded
	// URL-safe base64, and returns it together with its digest.
	//
	// The plain identifier is the only copy that ever leaves the server; only the
	// digest is persisted.
	GenerateToken() (plainToken string, tokenHash string, error error)

	// HashToken returns the hex encoded SHA-256 digest of a plain identifier.
	HashToken(plainToken string) string
}

// KMSKeeper is the subset of *secrets.Keeper used to unwrap the shared key.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KeyService provisions the symmetric key shared by the integrity wrappers.
type KeyService interface {
	// LoadKey decodes the base64 encodedKey. When keyURI is not empty the decoded bytes
	// are a KMS ciphertext and are decrypted through the keeper first.
	LoadKey(ctx context.Context, encodedKey, keyURI string) ([]byte, error)

	// GenerateKey creates a fresh random key and returns it base64 encoded, encrypted
	// through the keeper when keyURI is not empty.
	GenerateKey(ctx context.Context, keyURI string) (string, error)

	// DeriveKey derives an independent 32-byte subkey of key for purpose using
	// HKDF-SHA256, so that one configured key never signs two kinds of token.
	DeriveKey(key []byte, purpose string) ([]byte, error)
}
