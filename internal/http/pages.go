package httpx

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// Headers carrying the edge-decoded principal to the page upstream. Incoming
// values are always stripped so clients cannot forge them.
const (
	HeaderPrincipalUID   = "X-Portal-Uid"
	HeaderPrincipalEmail = "X-Portal-Email"
	HeaderPrincipalRole  = "X-Portal-Role"
)

// NewPageProxy forwards navigations the edge guard allowed to the frontend at
// target, propagating the principal as request headers.
func NewPageProxy(target *url.URL, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			for _, h := range []string{HeaderPrincipalUID, HeaderPrincipalEmail, HeaderPrincipalRole} {
				pr.Out.Header.Del(h)
			}
			if p, ok := PrincipalFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(HeaderPrincipalUID, p.UID)
				pr.Out.Header.Set(HeaderPrincipalEmail, p.Email)
				pr.Out.Header.Set(HeaderPrincipalRole, string(p.Role))
			}
			if id := RequestIDFromContext(pr.In.Context()); id != "" {
				pr.Out.Header.Set(RequestIDHeader, id)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "page upstream failed",
				"request_id", RequestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
			WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "upstream_unavailable", Message: "page upstream unavailable"})
		},
	}
}
