// Package oidc verifies short-lived OIDC ID tokens presented as identity
// proofs at sign-in.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/ports"
)

// DefaultMaxAuthAge bounds how long ago the user must have signed in for a
// proof to be exchanged for a session.
const DefaultMaxAuthAge = 5 * time.Minute

// ErrStaleSignIn is returned when the proof's sign-in time is older than MaxAuthAge.
var ErrStaleSignIn = errors.New("recent sign-in required")

var _ ports.IdentityProofVerifier = (*Verifier)(nil)

// VerifierConfig holds configuration for the identity proof verifier.
type VerifierConfig struct {
	IssuerURL  string
	Audience   string
	MaxAuthAge time.Duration    // Optional, defaults to DefaultMaxAuthAge
	HTTPClient *http.Client     // Optional, defaults to a client with a 10s timeout
	Now        func() time.Time // Optional, defaults to time.Now
}

// Verifier validates ID tokens against the issuer's published keys. Discovery
// happens on first use; concurrent first calls share one discovery, and a
// failed discovery is retried by the next call.
type Verifier struct {
	cfg        VerifierConfig
	httpClient *http.Client

	mu       sync.Mutex
	verifier *gooidc.IDTokenVerifier
}

// idTokenClaims are the identity claims read from a verified proof.
type idTokenClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AuthTime      int64  `json:"auth_time"`
}

// NewVerifier creates a Verifier. No network calls are made until the first
// VerifyProof.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}
	cfg.IssuerURL = strings.TrimSuffix(strings.TrimSuffix(cfg.IssuerURL, "/.well-known/openid-configuration"), "/")
	if cfg.MaxAuthAge <= 0 {
		cfg.MaxAuthAge = DefaultMaxAuthAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{cfg: cfg, httpClient: httpClient}, nil
}

// VerifyProof validates proof and returns the identity it asserts. Discovery
// failures are reported as BackendUnavailable; everything else about a bad
// proof is InvalidCredential.
func (v *Verifier) VerifyProof(ctx context.Context, proof string) (domainauth.Identity, error) {
	if strings.TrimSpace(proof) == "" {
		return domainauth.Identity{}, apperrors.InvalidCredential(errors.New("identity proof is empty"))
	}

	verifier, err := v.idTokenVerifier(ctx)
	if err != nil {
		return domainauth.Identity{}, apperrors.BackendUnavailable(err)
	}

	idTok, err := verifier.Verify(v.clientContext(ctx), proof)
	if err != nil {
		return domainauth.Identity{}, apperrors.InvalidCredential(fmt.Errorf("verify id_token: %w", err))
	}

	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, apperrors.InvalidCredential(fmt.Errorf("parse id_token claims: %w", claimsErr))
	}
	if claims.Subject == "" {
		return domainauth.Identity{}, apperrors.InvalidCredential(errors.New("id_token has no subject"))
	}

	signedInAt := idTok.IssuedAt
	if claims.AuthTime > 0 {
		signedInAt = time.Unix(claims.AuthTime, 0)
	}
	if v.cfg.Now().Sub(signedInAt) > v.cfg.MaxAuthAge {
		return domainauth.Identity{}, apperrors.InvalidCredential(ErrStaleSignIn)
	}

	return domainauth.Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		IssuedAt:      signedInAt,
	}, nil
}

// idTokenVerifier returns the cached verifier, running discovery under the
// lock when none exists yet.
func (v *Verifier) idTokenVerifier(ctx context.Context) (*gooidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.verifier != nil {
		return v.verifier, nil
	}

	op, err := gooidc.NewProvider(v.clientContext(ctx), v.cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	v.verifier = op.Verifier(&gooidc.Config{
		ClientID: v.cfg.Audience,
		Now:      v.cfg.Now,
	})
	return v.verifier, nil
}

func (v *Verifier) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
}
