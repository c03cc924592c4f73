package service

import (
	"context"
	"fmt"
	"log/slog"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Sessions ports.SessionStore
	Logger   *slog.Logger // Optional
}

// AuthService orchestrates login, logout, authoritative verification and role
// changes on top of the session store.
type AuthService struct {
	sessions ports.SessionStore
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		sessions: opts.Sessions,
		logger:   logger.With("component", "auth_service"),
	}
}

// Login exchanges an identity proof for a session credential and returns it
// together with the verified claims it carries.
func (s *AuthService) Login(ctx context.Context, identityProof string) (string, *domainauth.SessionClaims, error) {
	if identityProof == "" {
		return "", nil, apperrors.ValidationField("idToken", "identity proof is required")
	}

	cred, err := s.sessions.MintSessionCredential(ctx, identityProof)
	if err != nil {
		return "", nil, err
	}

	claims, err := s.sessions.VerifySessionCredential(ctx, cred)
	if err != nil {
		return "", nil, err
	}
	if claims == nil {
		return "", nil, apperrors.Internal("freshly minted session failed verification")
	}
	return cred, claims, nil
}

// Logout revokes every session of the principal owning credential. An invalid
// or missing credential is not an error; there is nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}

	claims, err := s.sessions.VerifySessionCredential(ctx, credential)
	if err != nil {
		return err
	}
	if claims == nil {
		return nil
	}

	if err := s.sessions.RevokeAllSessions(ctx, claims.UID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// Authenticate authoritatively verifies credential.
func (s *AuthService) Authenticate(ctx context.Context, credential string) (*domainauth.SessionClaims, error) {
	if credential == "" {
		return nil, apperrors.AuthenticationMissing()
	}

	claims, err := s.sessions.VerifySessionCredential(ctx, credential)
	if err != nil {
		if apperrors.IsBackendUnavailable(err) {
			return nil, err
		}
		return nil, apperrors.BackendUnavailable(err)
	}
	if claims == nil {
		return nil, apperrors.AuthenticationInvalid()
	}
	return claims, nil
}

// RequireRole authenticates credential and checks the principal holds one of roles.
func (s *AuthService) RequireRole(ctx context.Context, credential string, roles ...domainauth.Role) (*domainauth.SessionClaims, error) {
	claims, err := s.Authenticate(ctx, credential)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if claims.Role == r {
			return claims, nil
		}
	}
	s.logger.WarnContext(ctx, "role check failed", "uid", claims.UID, "role", string(claims.Role))
	return nil, apperrors.AuthorizationDenied("insufficient role")
}

// SetRoleInput groups parameters for SetRole.
type SetRoleInput struct {
	UID         string
	Role        domainauth.Role
	ProgramCode string
}

// SetRole stores new claims for a principal and then revokes its sessions so the
// change takes effect at the next login.
func (s *AuthService) SetRole(ctx context.Context, in SetRoleInput) error {
	if in.UID == "" {
		return apperrors.ValidationField("uid", "uid is required")
	}
	if !in.Role.Valid() {
		return apperrors.ValidationField("role", fmt.Sprintf("invalid role %q", in.Role))
	}

	claims := domainauth.PrincipalClaims{Role: in.Role, ProgramCode: in.ProgramCode}
	if err := s.sessions.SetClaims(ctx, in.UID, claims); err != nil {
		return fmt.Errorf("set claims: %w", err)
	}
	if err := s.sessions.RevokeAllSessions(ctx, in.UID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.logger.InfoContext(ctx, "role changed", "uid", in.UID, "role", string(in.Role))
	return nil
}

// RevokeSessions revokes every session of uid.
func (s *AuthService) RevokeSessions(ctx context.Context, uid string) error {
	return s.sessions.RevokeAllSessions(ctx, uid)
}
