package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	"github.com/placementcell/portal-auth/internal/observability/statsd"
	"github.com/placementcell/portal-auth/internal/ports"
)

// Edge decision outcomes, used as the outcome tag on edge.decision.
const (
	outcomeAsset          = "asset"
	outcomeAllow          = "allow"
	outcomeAllowAnonymous = "allow_anonymous"
	outcomeRedirectLogin  = "redirect_login"
	outcomeInvalidCookie  = "invalid_cookie"
	outcomeRedirectHome   = "redirect_landing"
	outcomeRedirectDenied = "redirect_denied"
)

// DefaultLoginPath is where unauthenticated navigations are sent.
const DefaultLoginPath = "/login"

// EdgeConfig configures EdgeGuard.
type EdgeConfig struct {
	Policy     domainauth.RoutePolicy
	Decoder    ports.OptimisticDecoder
	CookieName string
	LoginPath  string // Optional: defaults to DefaultLoginPath
	Cookies    CookieConfig
	Now        func() time.Time // Optional
	Metrics    statsd.Sink      // Optional
	Logger     *slog.Logger     // Optional
}

// EdgeGuard runs on every page navigation. It classifies the path, decodes the
// session cookie without checking its signature and either redirects or lets
// the request through with the principal in its context. It never calls the
// identity backend; anything it cannot decode is treated as signed out.
func EdgeGuard(cfg EdgeConfig) func(http.Handler) http.Handler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = statsd.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if cfg.Policy.IsAsset(path) {
				next.ServeHTTP(w, r)
				return
			}

			category := cfg.Policy.Classify(path)
			record := func(outcome string) {
				cfg.Metrics.Count("edge.decision", 1, map[string]string{"route": string(category), "outcome": outcome})
				cfg.Logger.DebugContext(r.Context(), "edge decision",
					"request_id", RequestIDFromContext(r.Context()),
					"path", path,
					"route", string(category),
					"outcome", outcome)
			}

			cred := cookieValue(r, cfg.CookieName)
			if cred == "" {
				if category.RequiresAuth() {
					record(outcomeRedirectLogin)
					http.Redirect(w, r, loginRedirect(cfg.LoginPath, path), http.StatusFound)
					return
				}
				record(outcomeAllowAnonymous)
				next.ServeHTTP(w, r)
				return
			}

			claims, err := cfg.Decoder.DecodeUnverified(cred, cfg.Now())
			if err != nil {
				record(outcomeInvalidCookie)
				cfg.Cookies.clearCookie(w, r, cfg.CookieName)
				target := cfg.LoginPath
				if category != domainauth.RouteAuth {
					target = loginRedirect(cfg.LoginPath, path)
				}
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			principal := claims.Principal()
			switch {
			case category == domainauth.RouteAuth:
				record(outcomeRedirectHome)
				http.Redirect(w, r, domainauth.LandingPath(principal.Role), http.StatusFound)
				return
			case category == domainauth.RouteAdmin && !principal.Role.IsStaff():
				record(outcomeRedirectDenied)
				http.Redirect(w, r, domainauth.StudentLandingPath, http.StatusFound)
				return
			}

			record(outcomeAllow)
			next.ServeHTTP(w, r.WithContext(SetPrincipalInContext(r.Context(), principal)))
		})
	}
}

// loginRedirect builds "<login>?redirect=<path>" leaving slashes readable.
func loginRedirect(loginPath, from string) string {
	return loginPath + "?redirect=" + strings.ReplaceAll(url.QueryEscape(from), "%2F", "/")
}
