// Package identity implements the session store port by composing an
// identity-proof verifier, a session credential codec, the authoritative
// claims store and the revocation store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/ports"
)

var _ ports.SessionStore = (*Backend)(nil)

// BackendOptions groups dependencies for Backend.
type BackendOptions struct {
	Verifier    ports.IdentityProofVerifier
	Codec       ports.SessionTokenCodec
	Claims      ports.ClaimsStore
	Revocations ports.RevocationStore
	Logger      *slog.Logger     // Optional
	Now         func() time.Time // Optional
}

// Backend is the identity backend client handle. It is built once at startup
// and shared by the HTTP layer and the admin CLI.
type Backend struct {
	verifier    ports.IdentityProofVerifier
	codec       ports.SessionTokenCodec
	claims      ports.ClaimsStore
	revocations ports.RevocationStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewBackend constructs a Backend. Panics if a required dependency is nil.
func NewBackend(opts BackendOptions) *Backend {
	if opts.Verifier == nil || opts.Codec == nil || opts.Claims == nil || opts.Revocations == nil {
		panic("identity: verifier, codec, claims and revocations are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Backend{
		verifier:    opts.Verifier,
		codec:       opts.Codec,
		claims:      opts.Claims,
		revocations: opts.Revocations,
		logger:      logger.With("component", "identity_backend"),
		now:         now,
	}
}

// MintSessionCredential exchanges a verified identity proof for a session
// credential carrying the principal's stored claims. A principal with no
// stored claims gets a credential without a role.
func (b *Backend) MintSessionCredential(ctx context.Context, identityProof string) (string, error) {
	id, err := b.verifier.VerifyProof(ctx, identityProof)
	if err != nil {
		if apperrors.IsBackendUnavailable(err) {
			return "", err
		}
		if !apperrors.IsInvalidCredential(err) {
			err = apperrors.InvalidCredential(err)
		}
		return "", err
	}

	pc, _, err := b.claims.GetClaims(ctx, id.UID)
	if err != nil {
		return "", asBackendUnavailable(err)
	}

	cred, err := b.codec.Mint(domainauth.SessionClaims{
		UID:           id.UID,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Role:          pc.Role,
		ProgramCode:   pc.ProgramCode,
	})
	if err != nil {
		return "", fmt.Errorf("mint session credential: %w", err)
	}
	b.logger.InfoContext(ctx, "session minted", "uid", id.UID, "role", string(pc.Role))
	return cred, nil
}

// VerifySessionCredential authoritatively verifies credential. Invalid,
// expired and revoked credentials all return (nil, nil); the reason is only
// logged. Revocation is checked at millisecond precision: a credential whose iat
// is earlier than the principal's valid-since marker is revoked.
func (b *Backend) VerifySessionCredential(ctx context.Context, credential string) (*domainauth.SessionClaims, error) {
	if credential == "" {
		return nil, nil
	}

	claims, err := b.codec.Parse(credential)
	if err != nil {
		b.logger.DebugContext(ctx, "session credential rejected", "error", err)
		return nil, nil
	}

	since, revoked, err := b.revocations.ValidSince(ctx, claims.UID)
	if err != nil {
		return nil, asBackendUnavailable(err)
	}
	if revoked && claims.IssuedAt.Before(since) {
		b.logger.DebugContext(ctx, "session credential revoked", "uid", claims.UID)
		return nil, nil
	}
	return &claims, nil
}

// RevokeAllSessions invalidates every credential for uid issued before now.
func (b *Backend) RevokeAllSessions(ctx context.Context, uid string) error {
	if uid == "" {
		return apperrors.ValidationField("uid", "uid is required")
	}
	if err := b.revocations.RevokeAll(ctx, uid, b.now()); err != nil {
		return asBackendUnavailable(err)
	}
	b.logger.InfoContext(ctx, "sessions revoked", "uid", uid)
	return nil
}

// SetClaims stores new claims for uid. It does not revoke existing sessions.
func (b *Backend) SetClaims(ctx context.Context, uid string, claims domainauth.PrincipalClaims) error {
	if uid == "" {
		return apperrors.ValidationField("uid", "uid is required")
	}
	if !claims.Role.Valid() {
		return apperrors.ValidationField("role", fmt.Sprintf("invalid role %q", claims.Role))
	}
	if err := b.claims.SetClaims(ctx, uid, claims); err != nil {
		if apperrors.IsValidation(err) {
			return err
		}
		return asBackendUnavailable(err)
	}
	b.logger.InfoContext(ctx, "claims updated", "uid", uid, "role", string(claims.Role))
	return nil
}

// asBackendUnavailable keeps an existing BackendUnavailable and wraps anything else.
func asBackendUnavailable(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeBackendUnavailable {
		return err
	}
	return apperrors.BackendUnavailable(err)
}
