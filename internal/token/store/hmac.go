package store

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// tagSeparator joins the delegate identifier and its tag. Delegate identifiers are
// base64url text, so the last separator always starts the tag.
const tagSeparator = "."

// hmacStore appends an HMAC-SHA256 tag to delegate identifiers and verifies it before
// any delegate call.
type hmacStore[T any] struct {
	delegate Store[T]
	key      []byte
}

// secureHMACStore is produced from a confidential delegate.
type secureHMACStore[T any] struct {
	*hmacStore[T]
}

func (s *secureHMACStore[T]) Confidential()  {}
func (s *secureHMACStore[T]) Authenticated() {}

// authenticatedHMACStore is produced from a delegate that is not confidential,
// such as the self-contained store.
type authenticatedHMACStore[T any] struct {
	*hmacStore[T]
}

func (s *authenticatedHMACStore[T]) Authenticated() {}

// WrapHMAC turns a confidential store into a secure store using key.
func WrapHMAC[T any](delegate ConfidentialStore[T], key []byte) SecureStore[T] {
	return &secureHMACStore[T]{hmacStore: newHMACStore[T](delegate, key)}
}

// WrapHMACAuthenticated turns any store into an authenticated store using key.
func WrapHMACAuthenticated[T any](delegate Store[T], key []byte) AuthenticatedStore[T] {
	return &authenticatedHMACStore[T]{hmacStore: newHMACStore[T](delegate, key)}
}

func newHMACStore[T any](delegate Store[T], key []byte) *hmacStore[T] {
	return &hmacStore[T]{
		delegate: delegate,
		key:      append([]byte(nil), key...),
	}
}

func (s *hmacStore[T]) Create(ctx context.Context, claim T) (string, error) {
	tokenID, err := s.delegate.Create(ctx, claim)
	if err != nil {
		return "", err
	}
	return tokenID + tagSeparator + base64.RawURLEncoding.EncodeToString(s.tag(tokenID)), nil
}

func (s *hmacStore[T]) Read(ctx context.Context, tokenID string) (T, error) {
	realID, ok := s.verify(tokenID)
	if !ok {
		var zero T
		return zero, tokenDomain.ErrTokenNotFound
	}
	return s.delegate.Read(ctx, realID)
}

func (s *hmacStore[T]) Revoke(ctx context.Context, tokenID string) error {
	realID, ok := s.verify(tokenID)
	if !ok {
		return nil
	}
	return s.delegate.Revoke(ctx, realID)
}

func (s *hmacStore[T]) tag(tokenID string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(tokenID))
	return mac.Sum(nil)
}

// verify splits tokenID on the last separator and checks the tag in constant time.
func (s *hmacStore[T]) verify(tokenID string) (string, bool) {
	idx := strings.LastIndex(tokenID, tagSeparator)
	if idx <= 0 {
		return "", false
	}

	realID := tokenID[:idx]
	provided, err := base64.RawURLEncoding.Strict().DecodeString(tokenID[idx+len(tagSeparator):])
	if err != nil {
		return "", false
	}

	return realID, hmac.Equal(provided, s.tag(realID))
}
