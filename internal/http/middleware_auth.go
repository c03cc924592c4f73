package httpx

import (
	"net/http"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
)

// RequireVerifiedRole authoritatively verifies the session cookie for API
// routes and requires one of roles. Failures are JSON: 401 for missing or
// invalid sessions, 403 for a wrong role, 503 when the backend is down.
// With no roles any verified principal passes.
func RequireVerifiedRole(auth AuthServiceInterface, cookieName string, roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := cookieValue(r, cookieName)

			var (
				claims *domainauth.SessionClaims
				err    error
			)
			if len(roles) == 0 {
				claims, err = auth.Authenticate(r.Context(), cred)
			} else {
				claims, err = auth.RequireRole(r.Context(), cred, roles...)
			}
			if err != nil {
				WriteAppError(w, err)
				return
			}

			ctx := SetPrincipalInContext(r.Context(), claims.Principal())
			ctx = setVerifiedClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
