package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	obserrors "github.com/placementcell/portal-auth/internal/observability/errors"
	"github.com/placementcell/portal-auth/internal/observability/statsd"
	"github.com/placementcell/portal-auth/internal/service"
)

// AuthServiceInterface defines the auth operations the HTTP layer needs.
type AuthServiceInterface interface {
	Login(ctx context.Context, identityProof string) (string, *domainauth.SessionClaims, error)
	Logout(ctx context.Context, credential string) error
	Authenticate(ctx context.Context, credential string) (*domainauth.SessionClaims, error)
	RequireRole(ctx context.Context, credential string, roles ...domainauth.Role) (*domainauth.SessionClaims, error)
	SetRole(ctx context.Context, in service.SetRoleInput) error
	RevokeSessions(ctx context.Context, uid string) error
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// AuthHandlers provides HTTP handlers for session operations.
type AuthHandlers struct {
	Svc           AuthServiceInterface
	Cookies       CookieConfig
	CookieName    string
	SessionMaxAge time.Duration
	Metrics       statsd.Sink // Optional
	Logger        *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) count(name string, tags map[string]string) {
	if h.Metrics != nil {
		h.Metrics.Count(name, 1, tags)
	}
}

type createSessionRequest struct {
	IDToken string `json:"idToken"`
}

type userResponse struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	Role          string `json:"role,omitempty"`
	ProgramCode   string `json:"programCode,omitempty"`
}

type sessionResponse struct {
	User       userResponse `json:"user"`
	RedirectTo string       `json:"redirectTo"`
	ExpiresAt  time.Time    `json:"expiresAt"`
}

func toUserResponse(c *domainauth.SessionClaims) userResponse {
	return userResponse{
		UID:           c.UID,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Role:          string(c.Role),
		ProgramCode:   c.ProgramCode,
	}
}

// CreateSession exchanges an identity proof for a session cookie.
// POST /api/auth/session.
func (h *AuthHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	cred, claims, err := h.Svc.Login(r.Context(), req.IDToken)
	if err != nil {
		h.logger().InfoContext(r.Context(), "login failed",
			"request_id", RequestIDFromContext(r.Context()), "error", err)
		h.count("auth.login", map[string]string{
			"outcome": obserrors.Classify(err),
			"cause":   obserrors.Cause(err),
		})
		WriteAppError(w, err)
		return
	}
	h.count("auth.login", map[string]string{"outcome": "ok"})

	h.Cookies.setSessionCookie(w, r, h.CookieName, cred, h.SessionMaxAge)
	WriteJSON(w, http.StatusOK, sessionResponse{
		User:       toUserResponse(claims),
		RedirectTo: domainauth.LandingPath(claims.Role),
		ExpiresAt:  claims.ExpiresAt,
	})
}

// Logout revokes every session of the caller and clears the cookie. The cookie
// is cleared even when revocation fails; the failure is still reported.
// POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	cred := cookieValue(r, h.CookieName)
	h.Cookies.clearCookie(w, r, h.CookieName)

	if err := h.Svc.Logout(r.Context(), cred); err != nil {
		h.logger().WarnContext(r.Context(), "logout revocation failed",
			"request_id", RequestIDFromContext(r.Context()), "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Me returns the authoritatively verified caller.
// GET /api/auth/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := VerifiedClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_missing", Message: "authentication required"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":      toUserResponse(claims),
		"expiresAt": claims.ExpiresAt,
	})
}
