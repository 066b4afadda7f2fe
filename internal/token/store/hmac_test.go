package store

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

func TestHMACStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	delegate := newMemoryStore[*tokenDomain.SessionClaim]()
	s := WrapHMAC[*tokenDomain.SessionClaim](delegate, testKey)
	claim := sessionClaim(t, "alice", 10*time.Minute)

	tokenID, err := s.Create(ctx, claim)
	require.NoError(t, err)

	idx := strings.LastIndex(tokenID, ".")
	require.Positive(t, idx)
	tag, err := base64.RawURLEncoding.DecodeString(tokenID[idx+1:])
	require.NoError(t, err)
	assert.Len(t, tag, 32)

	got, err := s.Read(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, claim.Principal, got.Principal)
	assert.Equal(t, claim.Expiry, got.Expiry)
	assert.Equal(t, claim.Attributes.Map(), got.Attributes.Map())
}

func TestHMACStore_TagBitFlip(t *testing.T) {
	ctx := context.Background()
	delegate := newMemoryStore[*tokenDomain.SessionClaim]()
	s := WrapHMAC[*tokenDomain.SessionClaim](delegate, testKey)

	tokenID, err := s.Create(ctx, sessionClaim(t, "alice", 10*time.Minute))
	require.NoError(t, err)

	idx := strings.LastIndex(tokenID, ".")
	realID := tokenID[:idx]
	tag, err := base64.RawURLEncoding.DecodeString(tokenID[idx+1:])
	require.NoError(t, err)

	t.Run("flipping any bit of the tag bytes", func(t *testing.T) {
		for i := 0; i < len(tag)*8; i++ {
			tampered := append([]byte(nil), tag...)
			tampered[i/8] ^= 1 << (i % 8)

			_, err := s.Read(ctx, realID+"."+base64.RawURLEncoding.EncodeToString(tampered))
			requireAbsent(t, err)
		}
	})

	t.Run("flipping any bit of the encoded tag text", func(t *testing.T) {
		encoded := []byte(tokenID[idx+1:])
		for i := 0; i < len(encoded)*8; i++ {
			tampered := append([]byte(nil), encoded...)
			tampered[i/8] ^= 1 << (i % 8)

			_, err := s.Read(ctx, realID+"."+string(tampered))
			requireAbsent(t, err)
		}
	})

	assert.Equal(t, 0, delegate.readCount(), "tampered tokens must never reach the delegate")
}

func TestHMACStore_Rejects(t *testing.T) {
	ctx := context.Background()
	delegate := &mockStore[*tokenDomain.SessionClaim]{}
	s := WrapHMAC[*tokenDomain.SessionClaim](delegate, testKey)

	delegate.On("Create", ctx, mock.Anything).Return("abc", nil).Once()
	tokenID, err := s.Create(ctx, sessionClaim(t, "alice", time.Minute))
	require.NoError(t, err)

	other := WrapHMAC[*tokenDomain.SessionClaim](delegate, []byte("another-key-another-key-another!!"))

	tests := []struct {
		name    string
		tokenID string
		store   Store[*tokenDomain.SessionClaim]
	}{
		{name: "empty", tokenID: "", store: s},
		{name: "no separator", tokenID: "abc", store: s},
		{name: "only tag", tokenID: "." + strings.Split(tokenID, ".")[1], store: s},
		{name: "invalid base64 tag", tokenID: "abc.!!!", store: s},
		{name: "truncated tag", tokenID: tokenID[:len(tokenID)-2], store: s},
		{name: "swapped identifier", tokenID: "abd." + strings.Split(tokenID, ".")[1], store: s},
		{name: "wrong key", tokenID: tokenID, store: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.store.Read(ctx, tt.tokenID)
			requireAbsent(t, err)
			assert.Nil(t, got)

			assert.NoError(t, tt.store.Revoke(ctx, tt.tokenID))
		})
	}

	delegate.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
	delegate.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestHMACStore_SplitsOnLastSeparator(t *testing.T) {
	ctx := context.Background()
	delegate := &mockStore[*tokenDomain.SessionClaim]{}
	s := WrapHMAC[*tokenDomain.SessionClaim](delegate, testKey)
	claim := sessionClaim(t, "alice", time.Minute)

	delegate.On("Create", ctx, claim).Return("part.one", nil).Once()
	delegate.On("Read", ctx, "part.one").Return(claim, nil).Once()

	tokenID, err := s.Create(ctx, claim)
	require.NoError(t, err)

	got, err := s.Read(ctx, tokenID)
	require.NoError(t, err)
	assert.Same(t, claim, got)
	delegate.AssertExpectations(t)
}

func TestHMACStore_Revoke(t *testing.T) {
	ctx := context.Background()
	delegate := newMemoryStore[*tokenDomain.SessionClaim]()
	s := WrapHMAC[*tokenDomain.SessionClaim](delegate, testKey)

	tokenID, err := s.Create(ctx, sessionClaim(t, "alice", time.Minute))
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, tokenID))
	_, err = s.Read(ctx, tokenID)
	requireAbsent(t, err)

	assert.NoError(t, s.Revoke(ctx, tokenID))
}

func TestHMACStore_DelegateErrorPropagates(t *testing.T) {
	ctx := context.Background()
	delegate := &mockStore[*tokenDomain.SessionClaim]{}
	s := WrapHMAC[*tokenDomain.SessionClaim](delegate, testKey)
	claim := sessionClaim(t, "alice", time.Minute)

	delegate.On("Create", ctx, claim).Return("", assert.AnError).Once()

	tokenID, err := s.Create(ctx, claim)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, tokenID)
}

func TestHMACStore_KeyIsCopied(t *testing.T) {
	ctx := context.Background()
	key := append([]byte(nil), testKey...)
	s := WrapHMAC[*tokenDomain.SessionClaim](newMemoryStore[*tokenDomain.SessionClaim](), key)

	tokenID, err := s.Create(ctx, sessionClaim(t, "alice", time.Minute))
	require.NoError(t, err)

	key[0] ^= 0xff

	_, err = s.Read(ctx, tokenID)
	assert.NoError(t, err)
}
