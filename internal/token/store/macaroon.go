package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/macaroon.v2"

	apperrors "github.com/allisson/natter/internal/errors"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// First-party caveat prefixes understood by the macaroon wrapper.
const (
	methodCaveatPrefix = "method = "
	expiryCaveatPrefix = "time < "
	sinceCaveatPrefix  = "since > "
)

// defaultSinceWindow is how far back a request reaches when it supplies no since parameter.
const defaultSinceWindow = 24 * time.Hour

var (
	errCaveatNotSatisfied = errors.New("caveat not satisfied")
	errCaveatExpired      = errors.New("expiry caveat passed")
	errCaveatsUnsupported = errors.New("store does not carry caveats")
)

// macaroonStore wraps delegate identifiers in macaroons signed with key.
type macaroonStore[T any] struct {
	delegate Store[T]
	key      []byte
	now      func() time.Time
}

type secureMacaroonStore[T any] struct {
	*macaroonStore[T]
}

func (s *secureMacaroonStore[T]) Confidential()  {}
func (s *secureMacaroonStore[T]) Authenticated() {}

type authenticatedMacaroonStore[T any] struct {
	*macaroonStore[T]
}

func (s *authenticatedMacaroonStore[T]) Authenticated() {}

// WrapMacaroon turns a confidential store into a secure store issuing macaroons.
func WrapMacaroon[T any](delegate ConfidentialStore[T], key []byte) SecureStore[T] {
	return &secureMacaroonStore[T]{macaroonStore: newMacaroonStore[T](delegate, key)}
}

// WrapMacaroonAuthenticated turns any store into an authenticated store issuing macaroons.
func WrapMacaroonAuthenticated[T any](delegate Store[T], key []byte) AuthenticatedStore[T] {
	return &authenticatedMacaroonStore[T]{macaroonStore: newMacaroonStore[T](delegate, key)}
}

func newMacaroonStore[T any](delegate Store[T], key []byte) *macaroonStore[T] {
	return &macaroonStore[T]{
		delegate: delegate,
		key:      append([]byte(nil), key...),
		now:      time.Now,
	}
}

// Create mints a macaroon whose identifier is the delegate identifier. Claims that
// carry an expiry get a matching time caveat.
func (s *macaroonStore[T]) Create(ctx context.Context, claim T) (string, error) {
	tokenID, err := s.delegate.Create(ctx, claim)
	if err != nil {
		return "", err
	}

	m, err := macaroon.New(s.key, []byte(tokenID), "", macaroon.V2)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to create macaroon")
	}

	if expirer, ok := any(claim).(tokenDomain.Expirer); ok {
		if expiry, has := expirer.ExpiresAt(); has {
			if err := m.AddFirstPartyCaveat([]byte(ExpiryCaveat(expiry))); err != nil {
				return "", apperrors.Wrap(err, "failed to add expiry caveat")
			}
		}
	}

	return encodeMacaroon(m)
}

// Read verifies the signature chain, then every caveat in order against the current
// request, before delegating with the root identifier. Caveats are only evaluated once
// the signature holds, so a forged credential is always plain absent while a genuine one
// whose time caveat has passed reports ErrTokenExpired.
func (s *macaroonStore[T]) Read(ctx context.Context, tokenID string) (T, error) {
	var zero T

	m, err := decodeMacaroon(tokenID)
	if err != nil {
		return zero, tokenDomain.ErrTokenNotFound
	}

	caveats, err := m.VerifySignature(s.key, nil)
	if err != nil {
		return zero, tokenDomain.ErrTokenNotFound
	}

	info, _ := RequestInfoFrom(ctx)
	check := s.checker(info, s.now())
	for _, caveat := range caveats {
		if err := check(caveat); err != nil {
			if errors.Is(err, errCaveatExpired) {
				return zero, tokenDomain.ErrTokenExpired
			}
			return zero, tokenDomain.ErrTokenNotFound
		}
	}

	return s.delegate.Read(ctx, string(m.Id()))
}

// Revoke checks only that the macaroon was minted with key, then revokes the root
// identifier. Caveats are not evaluated: any attenuated copy can revoke its root.
func (s *macaroonStore[T]) Revoke(ctx context.Context, tokenID string) error {
	m, err := decodeMacaroon(tokenID)
	if err != nil {
		return nil
	}

	if _, err := m.VerifySignature(s.key, nil); err != nil {
		return nil
	}

	return s.delegate.Revoke(ctx, string(m.Id()))
}

// Caveats verifies the signature of tokenID and returns its first-party caveats in order.
func (s *macaroonStore[T]) Caveats(tokenID string) ([]string, error) {
	m, err := decodeMacaroon(tokenID)
	if err != nil {
		return nil, tokenDomain.ErrTokenNotFound
	}

	caveats, err := m.VerifySignature(s.key, nil)
	if err != nil {
		return nil, tokenDomain.ErrTokenNotFound
	}
	return caveats, nil
}

// CreateWithCaveats mints a macaroon for claim like Create and appends caveats to it.
func (s *macaroonStore[T]) CreateWithCaveats(ctx context.Context, claim T, caveats []string) (string, error) {
	tokenID, err := s.Create(ctx, claim)
	if err != nil || len(caveats) == 0 {
		return tokenID, err
	}
	return Attenuate(tokenID, caveats...)
}

func (s *macaroonStore[T]) checker(info RequestInfo, now time.Time) func(caveat string) error {
	return func(caveat string) error {
		switch {
		case strings.HasPrefix(caveat, methodCaveatPrefix):
			if caveat != methodCaveatPrefix+info.Method {
				return errCaveatNotSatisfied
			}
			return nil

		case strings.HasPrefix(caveat, expiryCaveatPrefix):
			expiry, err := time.Parse(time.RFC3339, strings.TrimPrefix(caveat, expiryCaveatPrefix))
			if err != nil {
				return errCaveatNotSatisfied
			}
			if !now.Before(expiry) {
				return errCaveatExpired
			}
			return nil

		case strings.HasPrefix(caveat, sinceCaveatPrefix):
			minSince, err := time.Parse(time.RFC3339, strings.TrimPrefix(caveat, sinceCaveatPrefix))
			if err != nil {
				return errCaveatNotSatisfied
			}
			reqSince := now.Add(-defaultSinceWindow)
			if raw := info.Query.Get("since"); raw != "" {
				reqSince, err = time.Parse(time.RFC3339, raw)
				if err != nil {
					return errCaveatNotSatisfied
				}
			}
			if !reqSince.After(minSince) {
				return errCaveatNotSatisfied
			}
			return nil

		default:
			return fmt.Errorf("unknown caveat: %w", errCaveatNotSatisfied)
		}
	}
}

// Attenuate adds first-party caveats to a macaroon credential. It needs no key:
// caveats can only narrow what the credential grants.
func Attenuate(tokenID string, caveats ...string) (string, error) {
	m, err := decodeMacaroon(tokenID)
	if err != nil {
		return "", apperrors.Wrap(tokenDomain.ErrMalformedCredential, "not a macaroon")
	}

	for _, caveat := range caveats {
		if err := m.AddFirstPartyCaveat([]byte(caveat)); err != nil {
			return "", apperrors.Wrap(err, "failed to add caveat")
		}
	}

	return encodeMacaroon(m)
}

// MethodCaveat restricts a credential to one HTTP method.
func MethodCaveat(method string) string {
	return methodCaveatPrefix + strings.ToUpper(method)
}

// ExpiryCaveat restricts a credential to requests before expiry.
func ExpiryCaveat(expiry time.Time) string {
	return expiryCaveatPrefix + expiry.UTC().Format(time.RFC3339)
}

// SinceCaveat restricts a credential to requests whose since parameter is after t.
func SinceCaveat(t time.Time) string {
	return sinceCaveatPrefix + t.UTC().Format(time.RFC3339)
}

// EarliestExpiry returns the earliest instant named by a time caveat in caveats.
// Caveats that do not parse are skipped; they never verify anyway.
func EarliestExpiry(caveats []string) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, caveat := range caveats {
		if !strings.HasPrefix(caveat, expiryCaveatPrefix) {
			continue
		}
		expiry, err := time.Parse(time.RFC3339, strings.TrimPrefix(caveat, expiryCaveatPrefix))
		if err != nil {
			continue
		}
		if !found || expiry.Before(earliest) {
			earliest, found = expiry, true
		}
	}
	return earliest, found
}

func encodeMacaroon(m *macaroon.Macaroon) (string, error) {
	data, err := m.MarshalBinary()
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode macaroon")
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeMacaroon(tokenID string) (*macaroon.Macaroon, error) {
	data, err := base64.RawURLEncoding.Strict().DecodeString(tokenID)
	if err != nil {
		return nil, err
	}

	var m macaroon.Macaroon
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &m, nil
}
