// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"time"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
)

// SessionStore is the boundary to the identity backend. It exchanges identity
// proofs for long-lived session credentials and verifies them authoritatively.
type SessionStore interface {
	// MintSessionCredential verifies a short-lived identity proof and returns a
	// session credential carrying the principal's current claims.
	MintSessionCredential(ctx context.Context, identityProof string) (string, error)

	// VerifySessionCredential checks signature, expiry and revocation. Invalid,
	// expired or revoked credentials yield (nil, nil); only backend outages are
	// returned as errors.
	VerifySessionCredential(ctx context.Context, credential string) (*domainauth.SessionClaims, error)

	// RevokeAllSessions invalidates every credential minted for uid before now.
	RevokeAllSessions(ctx context.Context, uid string) error

	// SetClaims replaces the principal's stored claims. Credentials already
	// minted keep the old claims until they are revoked or expire.
	SetClaims(ctx context.Context, uid string, claims domainauth.PrincipalClaims) error
}

// IdentityProofVerifier validates short-lived identity proofs issued by the
// identity provider.
type IdentityProofVerifier interface {
	VerifyProof(ctx context.Context, proof string) (domainauth.Identity, error)
}

// SessionTokenCodec mints and authoritatively parses signed session credentials.
type SessionTokenCodec interface {
	Mint(claims domainauth.SessionClaims) (string, error)
	Parse(credential string) (domainauth.SessionClaims, error)
}

// OptimisticDecoder decodes a credential's payload without checking its
// signature. Callers must treat the result as a routing hint only.
type OptimisticDecoder interface {
	DecodeUnverified(credential string, now time.Time) (domainauth.SessionClaims, error)
}

// ClaimsStore holds the authoritative per-principal claims.
type ClaimsStore interface {
	GetClaims(ctx context.Context, uid string) (domainauth.PrincipalClaims, bool, error)
	SetClaims(ctx context.Context, uid string, claims domainauth.PrincipalClaims) error
}

// RevocationStore records the instant before which a principal's credentials
// are no longer accepted.
type RevocationStore interface {
	RevokeAll(ctx context.Context, uid string, at time.Time) error
	// ValidSince returns the revocation marker, or ok=false when none is set.
	ValidSince(ctx context.Context, uid string) (since time.Time, ok bool, err error)
}
