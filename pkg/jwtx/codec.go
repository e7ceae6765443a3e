// Package jwtx mints and verifies the EdDSA-signed bearer tokens the chat UI
// presents on authenticated routes. The signing key is derived from the
// service's master secret, so tokens stay valid across restarts without any
// key material being written to disk.
package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTokenTTL matches the session registry's 24 hour lifetime so
// a bearer token never outlives the session it points at.
const DefaultSessionTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("jwtx: invalid token")

// Claims are the session-token claims. The subject is the resolved user id.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the Google account, for display only.
	Email string `json:"email,omitempty"`
}

// ValidateExpiry reports whether the token is still within its lifetime.
func (c Claims) ValidateExpiry() error {
	if c.ExpiresAt == nil || time.Now().After(c.ExpiresAt.Time) {
		return ErrInvalidToken
	}
	return nil
}

// Codec signs and verifies session tokens with a single Ed25519 key pair.
type Codec struct {
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
	ttl    time.Duration
}

// NewCodec builds a Codec from a 32-byte Ed25519 seed. Derive the seed from
// the master secret (see cryptox.DeriveKey) rather than storing a key file.
func NewCodec(seed []byte, issuer string, ttl time.Duration) (*Codec, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("jwtx: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if ttl <= 0 {
		ttl = DefaultSessionTokenTTL
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &Codec{
		priv:   priv,
		pub:    priv.Public().(ed25519.PublicKey),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

// Mint issues a signed session token for the given user. Returns the compact
// token and its expiry.
func (c *Codec) Mint(userID, email string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(c.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(c.priv)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtx: sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify parses and validates a compact token, returning its claims.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return c.pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
