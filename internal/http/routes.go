package httpx

import (
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	"github.com/placementcell/portal-auth/internal/observability/statsd"
	"github.com/placementcell/portal-auth/internal/ports"
	"github.com/placementcell/portal-auth/internal/service"
)

// DefaultSessionCookieName is the cookie carrying the session credential.
const DefaultSessionCookieName = "session"

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth    AuthServiceInterface
	CSRF    *service.CSRFManager
	Decoder ports.OptimisticDecoder
	// Policy defaults to domainauth.DefaultRoutePolicy when it has no rules.
	Policy            domainauth.RoutePolicy
	SessionCookieName string
	SessionMaxAge     time.Duration
	Cookies           CookieConfig
	// Pages serves navigations the edge guard allows. Defaults to 404.
	Pages        http.Handler
	HealthChecks map[string]Check
	Metrics      statsd.Sink      // Optional
	Logger       *slog.Logger     // Optional
	Now          func() time.Time // Optional
}

// NewRouter wires the API, the probes and the edge-guarded page surface.
//
// API routes are not behind the edge guard: they answer with JSON status codes
// and privileged ones verify authoritatively via RequireVerifiedRole.
func NewRouter(s RouterServices) http.Handler {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cookieName := s.SessionCookieName
	if cookieName == "" {
		cookieName = DefaultSessionCookieName
	}
	policy := s.Policy
	if len(policy.Rules) == 0 {
		policy = domainauth.DefaultRoutePolicy()
	}

	csrfCfg := CSRFGuardConfig{Manager: s.CSRF, Cookies: s.Cookies, Metrics: s.Metrics, Logger: logger}
	csrf := CSRFGuard(csrfCfg)
	authHandlers := &AuthHandlers{
		Svc:           s.Auth,
		Cookies:       s.Cookies,
		CookieName:    cookieName,
		SessionMaxAge: s.SessionMaxAge,
		Metrics:       s.Metrics,
		Logger:        logger,
	}
	adminHandlers := &AdminHandlers{Svc: s.Auth, Logger: logger}
	verified := RequireVerifiedRole(s.Auth, cookieName)
	adminOnly := RequireVerifiedRole(s.Auth, cookieName, domainauth.RoleAdmin)

	api := http.NewServeMux()
	api.Handle("GET /api/csrf-token", CSRFTokenHandler(csrfCfg))
	api.Handle("POST /api/auth/session", csrf(http.HandlerFunc(authHandlers.CreateSession)))
	api.Handle("POST /api/auth/logout", csrf(http.HandlerFunc(authHandlers.Logout)))
	api.Handle("GET /api/auth/me", verified(http.HandlerFunc(authHandlers.Me)))
	api.Handle("POST /api/admin/users/{uid}/role", Chain(http.HandlerFunc(adminHandlers.SetRole), csrf, adminOnly))
	api.Handle("POST /api/admin/users/{uid}/revoke", Chain(http.HandlerFunc(adminHandlers.RevokeSessions), csrf, adminOnly))

	health := &HealthHandlers{Checks: s.HealthChecks, Logger: logger}

	pages := s.Pages
	if pages == nil {
		pages = http.NotFoundHandler()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.HandleFunc("GET /healthz", health.Live)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("/", EdgeGuard(EdgeConfig{
		Policy:     policy,
		Decoder:    s.Decoder,
		CookieName: cookieName,
		Cookies:    s.Cookies,
		Now:        s.Now,
		Metrics:    s.Metrics,
		Logger:     logger,
	})(pages))

	return Chain(mux, RequestID(), Logging(logger), Recover(logger))
}
