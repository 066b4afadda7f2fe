package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"gocloud.dev/secrets"
	"golang.org/x/crypto/hkdf"

	apperrors "github.com/allisson/natter/internal/errors"
	tokenDomain "github.com/allisson/natter/internal/token/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// MinKeySize is the minimum accepted length of the shared key in bytes.
const MinKeySize = 32

// keyService implements KeyService using gocloud.dev/secrets.
type keyService struct {
	openKeeper func(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// NewKeyService creates a KeyService that opens keepers through gocloud.dev/secrets.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func NewKeyService() KeyService {
	return &keyService{openKeeper: openKeeper}
}

func openKeeper(ctx context.Context, keyURI string) (KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// LoadKey decodes and, when configured, decrypts the shared key.
func (k *keyService) LoadKey(ctx context.Context, encodedKey, keyURI string) ([]byte, error) {
	if encodedKey == "" {
		return nil, apperrors.Wrap(tokenDomain.ErrInvalidTokenKey, "TOKEN_KEY is not set")
	}

	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, apperrors.Wrap(tokenDomain.ErrInvalidTokenKey, "TOKEN_KEY is not valid base64")
	}

	if keyURI != "" {
		raw, err = k.decrypt(ctx, raw, keyURI)
		if err != nil {
			return nil, err
		}
	}

	if len(raw) < MinKeySize {
		return nil, apperrors.Wrapf(
			tokenDomain.ErrInvalidTokenKey,
			"key must be at least %d bytes, got %d",
			MinKeySize,
			len(raw),
		)
	}

	return raw, nil
}

// GenerateKey creates a new random key suitable for TOKEN_KEY.
func (k *keyService) GenerateKey(ctx context.Context, keyURI string) (string, error) {
	key := make([]byte, MinKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", apperrors.Wrap(err, "failed to generate random key")
	}

	if keyURI == "" {
		return base64.StdEncoding.EncodeToString(key), nil
	}

	keeper, err := k.openKeeper(ctx, keyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encrypt key")
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DeriveKey expands key with HKDF-SHA256. The info string is versioned so the
// derivation can change without reusing subkeys.
func (k *keyService) DeriveKey(key []byte, purpose string) ([]byte, error) {
	if len(key) < MinKeySize {
		return nil, apperrors.Wrapf(tokenDomain.ErrInvalidTokenKey, "key must be at least %d bytes", MinKeySize)
	}
	if purpose == "" {
		return nil, apperrors.New("key purpose is required")
	}

	reader := hkdf.New(sha256.New, key, nil, []byte("natter-"+purpose+"-v1"))

	subkey := make([]byte, MinKeySize)
	if _, err := io.ReadFull(reader, subkey); err != nil {
		return nil, apperrors.Wrap(err, "failed to derive key")
	}
	return subkey, nil
}

func (k *keyService) decrypt(ctx context.Context, ciphertext []byte, keyURI string) ([]byte, error) {
	keeper, err := k.openKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decrypt key")
	}
	return plaintext, nil
}
