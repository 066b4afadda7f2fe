package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// memoryStore is an in-memory confidential store used as a delegate in wrapper tests.
type memoryStore[T any] struct {
	mu     sync.Mutex
	claims map[string]T
	reads  int
}

func newMemoryStore[T any]() *memoryStore[T] {
	return &memoryStore[T]{claims: make(map[string]T)}
}

func (s *memoryStore[T]) Confidential() {}

func (s *memoryStore[T]) Create(ctx context.Context, claim T) (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	id := base64.RawURLEncoding.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[id] = claim
	return id, nil
}

func (s *memoryStore[T]) Read(ctx context.Context, tokenID string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	claim, ok := s.claims[tokenID]
	if !ok {
		var zero T
		return zero, tokenDomain.ErrTokenNotFound
	}
	return claim, nil
}

func (s *memoryStore[T]) Revoke(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, tokenID)
	return nil
}

func (s *memoryStore[T]) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// mockStore is a testify mock of Store used to assert delegate interactions.
type mockStore[T any] struct {
	mock.Mock
}

func (m *mockStore[T]) Confidential() {}

func (m *mockStore[T]) Create(ctx context.Context, claim T) (string, error) {
	args := m.Called(ctx, claim)
	return args.String(0), args.Error(1)
}

func (m *mockStore[T]) Read(ctx context.Context, tokenID string) (T, error) {
	args := m.Called(ctx, tokenID)
	var zero T
	if v := args.Get(0); v != nil {
		zero = v.(T)
	}
	return zero, args.Error(1)
}

func (m *mockStore[T]) Revoke(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func sessionClaim(t *testing.T, principal string, ttl time.Duration) *tokenDomain.SessionClaim {
	t.Helper()
	claim := tokenDomain.NewSessionClaim(principal, time.Now().Add(ttl).Truncate(time.Second))
	claim.Attributes.Set("role", "member")
	return claim
}

func requireAbsent(t *testing.T, err error) {
	t.Helper()
	require.ErrorIs(t, err, tokenDomain.ErrTokenNotFound)
}

// Compile-time checks of the capability traits each constructor promises.
var (
	_ SecureStore[*tokenDomain.SessionClaim]        = WrapHMAC[*tokenDomain.SessionClaim](newMemoryStore[*tokenDomain.SessionClaim](), testKey)
	_ SecureStore[*tokenDomain.SessionClaim]        = WrapMacaroon[*tokenDomain.SessionClaim](newMemoryStore[*tokenDomain.SessionClaim](), testKey)
	_ AuthenticatedStore[*tokenDomain.SessionClaim] = WrapHMACAuthenticated[*tokenDomain.SessionClaim](newMemoryStore[*tokenDomain.SessionClaim](), testKey)
	_ ConfidentialStore[*tokenDomain.SessionClaim]  = newMemoryStore[*tokenDomain.SessionClaim]()
	_ CaveatStore[*tokenDomain.SessionClaim]        = &secureMacaroonStore[*tokenDomain.SessionClaim]{}
	_ CaveatStore[*tokenDomain.SessionClaim]        = &authenticatedMacaroonStore[*tokenDomain.SessionClaim]{}
)
