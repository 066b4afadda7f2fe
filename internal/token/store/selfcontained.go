package store

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/fxamacker/cbor/v2"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// Codec converts claims to and from their self-contained byte encoding.
type Codec[T any] interface {
	Encode(claim T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// selfContainedStore keeps no server state: the claim itself is the identifier.
// It must be wrapped by an integrity wrapper before identifiers are trusted.
type selfContainedStore[T tokenDomain.Expirer] struct {
	codec Codec[T]
	now   func() time.Time
}

// NewSelfContainedStore creates a stateless store that encodes claims with codec.
func NewSelfContainedStore[T tokenDomain.Expirer](codec Codec[T]) Store[T] {
	return &selfContainedStore[T]{codec: codec, now: time.Now}
}

func (s *selfContainedStore[T]) Create(ctx context.Context, claim T) (string, error) {
	data, err := s.codec.Encode(claim)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func (s *selfContainedStore[T]) Read(ctx context.Context, tokenID string) (T, error) {
	var zero T

	data, err := base64.RawURLEncoding.Strict().DecodeString(tokenID)
	if err != nil || len(data) == 0 {
		return zero, tokenDomain.ErrTokenNotFound
	}

	claim, err := s.codec.Decode(data)
	if err != nil {
		return zero, tokenDomain.ErrTokenNotFound
	}

	if tokenDomain.IsExpired(claim, s.now()) {
		return zero, tokenDomain.ErrTokenExpired
	}

	return claim, nil
}

// Revoke is a no-op: there is no server state to remove.
func (s *selfContainedStore[T]) Revoke(ctx context.Context, tokenID string) error {
	return nil
}

// cborEncMode produces canonical CBOR so equal claims encode to equal bytes.
var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

type capabilityWire struct {
	Path        string `cbor:"1,keyasint"`
	Permissions uint8  `cbor:"2,keyasint"`
	Expiry      int64  `cbor:"3,keyasint,omitempty"`
}

// CapabilityCodec encodes capability claims as compact CBOR maps.
type CapabilityCodec struct{}

// Encode implements Codec.
func (CapabilityCodec) Encode(claim *tokenDomain.CapabilityClaim) ([]byte, error) {
	wire := capabilityWire{
		Path:        claim.Path,
		Permissions: uint8(claim.Permissions),
	}
	if claim.Expiry != nil {
		wire.Expiry = claim.Expiry.Unix()
	}
	return cborEncMode.Marshal(wire)
}

// Decode implements Codec.
func (CapabilityCodec) Decode(data []byte) (*tokenDomain.CapabilityClaim, error) {
	var wire capabilityWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	if wire.Path == "" || tokenDomain.Permissions(wire.Permissions)&^tokenDomain.PermAll != 0 {
		return nil, tokenDomain.ErrTokenNotFound
	}

	claim := tokenDomain.NewCapabilityClaim(wire.Path, tokenDomain.Permissions(wire.Permissions), nil)
	if wire.Expiry != 0 {
		expiry := time.Unix(wire.Expiry, 0).UTC()
		claim.Expiry = &expiry
	}
	return claim, nil
}

type sessionWire struct {
	Principal  string            `cbor:"1,keyasint"`
	Expiry     int64             `cbor:"2,keyasint"`
	Attributes map[string]string `cbor:"3,keyasint,omitempty"`
}

// SessionCodec encodes session claims as compact CBOR maps.
type SessionCodec struct{}

// Encode implements Codec.
func (SessionCodec) Encode(claim *tokenDomain.SessionClaim) ([]byte, error) {
	return cborEncMode.Marshal(sessionWire{
		Principal:  claim.Principal,
		Expiry:     claim.Expiry.Unix(),
		Attributes: claim.Attributes.Map(),
	})
}

// Decode implements Codec.
func (SessionCodec) Decode(data []byte) (*tokenDomain.SessionClaim, error) {
	var wire sessionWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	if wire.Principal == "" {
		return nil, tokenDomain.ErrTokenNotFound
	}

	claim := tokenDomain.NewSessionClaim(wire.Principal, time.Unix(wire.Expiry, 0).UTC())
	claim.Attributes = tokenDomain.NewAttributes(wire.Attributes)
	return claim, nil
}
