// Package sessiontoken mints and reads RS256-signed session credentials.
//
// Two read paths exist. Parse is authoritative: it checks the signature,
// issuer, audience and expiry. DecodeUnverified only base64url-decodes the
// payload segment and checks exp; it trusts the HttpOnly/Secure cookie
// transport instead of the signature and must only feed routing decisions.
package sessiontoken

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	"github.com/placementcell/portal-auth/internal/ports"
)

// DefaultTTL is the lifetime of a minted session credential.
const DefaultTTL = 5 * 24 * time.Hour

var (
	// ErrMalformed is returned when a credential cannot be decoded.
	ErrMalformed = errors.New("malformed session credential")
	// ErrExpired is returned when a credential is past its exp.
	ErrExpired = errors.New("session credential expired")
	// ErrInvalid is returned when a credential fails authoritative validation.
	ErrInvalid = errors.New("invalid session credential")
)

var (
	_ ports.SessionTokenCodec = (*Codec)(nil)
	_ ports.OptimisticDecoder = (*Codec)(nil)
	_ ports.OptimisticDecoder = Decoder{}
)

// sessionClaims is the wire form of a session credential payload.
type sessionClaims struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role,omitempty"`
	ProgramCode   string `json:"program_code,omitempty"`
	// IssuedAtMs is iat in unix milliseconds; revocation compares against it.
	IssuedAtMs int64 `json:"iat_ms,omitempty"`
	jwt.RegisteredClaims
}

func (c *sessionClaims) toDomain() domainauth.SessionClaims {
	out := domainauth.SessionClaims{
		UID:           c.UID,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Role:          domainauth.Role(c.Role),
		ProgramCode:   c.ProgramCode,
	}
	switch {
	case c.IssuedAtMs > 0:
		out.IssuedAt = time.UnixMilli(c.IssuedAtMs).UTC()
	case c.IssuedAt != nil:
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

// Options groups configuration for Codec.
type Options struct {
	Key      *rsa.PrivateKey
	Issuer   string
	Audience string
	TTL      time.Duration    // Optional: defaults to DefaultTTL
	Now      func() time.Time // Optional: defaults to time.Now
}

// Codec signs session credentials with an RSA key and verifies them with its
// public half.
type Codec struct {
	key      *rsa.PrivateKey
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewCodec constructs a Codec.
func NewCodec(opts Options) (*Codec, error) {
	if opts.Key == nil {
		return nil, errors.New("session signing key is required")
	}
	if opts.Issuer == "" || opts.Audience == "" {
		return nil, errors.New("session issuer and audience are required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{
		key:      opts.Key,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		ttl:      ttl,
		now:      now,
	}, nil
}

// TTL returns the lifetime of minted credentials.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Mint signs claims into a credential. IssuedAt and ExpiresAt on the input are
// ignored and set from the codec clock.
func (c *Codec) Mint(claims domainauth.SessionClaims) (string, error) {
	if claims.UID == "" {
		return "", errors.New("session uid is required")
	}
	now := c.now()
	sc := sessionClaims{
		UID:           claims.UID,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Role:          string(claims.Role),
		ProgramCode:   claims.ProgramCode,
		IssuedAtMs:    now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   claims.UID,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, sc).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign session credential: %w", err)
	}
	return signed, nil
}

// Parse authoritatively validates credential. All failures wrap ErrInvalid,
// or ErrExpired when only the expiry check failed.
func (c *Codec) Parse(credential string) (domainauth.SessionClaims, error) {
	var sc sessionClaims
	_, err := jwt.ParseWithClaims(credential, &sc,
		func(*jwt.Token) (any, error) { return &c.key.PublicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domainauth.SessionClaims{}, fmt.Errorf("%w: %w", ErrExpired, err)
	case err != nil:
		return domainauth.SessionClaims{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	case sc.UID == "" || sc.UID != sc.Subject:
		return domainauth.SessionClaims{}, fmt.Errorf("%w: uid does not match subject", ErrInvalid)
	}
	return sc.toDomain(), nil
}

// DecodeUnverified decodes credential without checking its signature.
func (c *Codec) DecodeUnverified(credential string, now time.Time) (domainauth.SessionClaims, error) {
	return Decoder{}.DecodeUnverified(credential, now)
}

// Decoder performs the signature-blind decode and needs no key material, so
// the edge can run without access to the signing key.
type Decoder struct{}

// DecodeUnverified splits credential into three segments, base64url-decodes
// the payload segment only, and checks exp against now.
func (Decoder) DecodeUnverified(credential string, now time.Time) (domainauth.SessionClaims, error) {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return domainauth.SessionClaims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(parts))
	}
	raw, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return domainauth.SessionClaims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	var sc sessionClaims
	if err := json.Unmarshal(raw, &sc); err != nil {
		return domainauth.SessionClaims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if sc.UID == "" {
		return domainauth.SessionClaims{}, fmt.Errorf("%w: missing uid", ErrMalformed)
	}
	out := sc.toDomain()
	if out.Expired(now) {
		return domainauth.SessionClaims{}, ErrExpired
	}
	return out, nil
}
