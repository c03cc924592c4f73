package httpx

import (
	"log/slog"
	"net/http"

	"github.com/placementcell/portal-auth/internal/observability/statsd"
	"github.com/placementcell/portal-auth/internal/service"
)

// DefaultCSRFHeaderName is the header carrying the request half of the
// double-submit pair (canonical form).
const DefaultCSRFHeaderName = "X-Csrf-Token"

// CSRFGuardConfig configures CSRFGuard and CSRFTokenHandler.
type CSRFGuardConfig struct {
	Manager *service.CSRFManager
	Cookies CookieConfig
	Metrics statsd.Sink  // Optional
	Logger  *slog.Logger // Optional
}

func (c *CSRFGuardConfig) defaults() {
	if c.Metrics == nil {
		c.Metrics = statsd.Nop{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// CSRFGuard rejects state-changing requests whose X-Csrf-Token header does
// not match a valid, unexpired csrf_token cookie. Safe methods pass.
func CSRFGuard(cfg CSRFGuardConfig) func(http.Handler) http.Handler {
	cfg.defaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := cfg.Manager.Guard(r.Method, r.Header.Get(DefaultCSRFHeaderName), cookieValue(r, DefaultCSRFCookieName))
			if !res.Valid {
				cfg.Metrics.Count("csrf.rejected", 1, map[string]string{"method": r.Method})
				cfg.Logger.WarnContext(r.Context(), "csrf rejected",
					"request_id", RequestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path)
				WriteAppError(w, res.Err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type csrfTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// CSRFTokenHandler serves GET /api/csrf-token. A still-valid cookie token is
// returned as is; otherwise a new token is issued and set as the cookie.
func CSRFTokenHandler(cfg CSRFGuardConfig) http.HandlerFunc {
	cfg.defaults()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		if existing := cookieValue(r, DefaultCSRFCookieName); existing != "" && cfg.Manager.Verify(existing) {
			WriteJSON(w, http.StatusOK, csrfTokenResponse{CSRFToken: existing})
			return
		}

		token, err := cfg.Manager.Issue()
		if err != nil {
			cfg.Logger.ErrorContext(r.Context(), "csrf token issue failed", "error", err)
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal", Message: "unable to issue CSRF token"})
			return
		}
		cfg.Cookies.setCSRFCookie(w, r, token, cfg.Manager.Window())
		WriteJSON(w, http.StatusOK, csrfTokenResponse{CSRFToken: token})
	}
}
