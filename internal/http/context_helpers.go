package httpx

import (
	"context"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
)

// Unexported context key types avoid collisions across packages.
type (
	principalKey     struct{}
	requestIDKey     struct{}
	sessionClaimsKey struct{}
)

// SetPrincipalInContext returns a child context carrying p.
func SetPrincipalInContext(ctx context.Context, p domainauth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal the edge guard attached to the
// request. It reflects an optimistic decode only; privileged handlers must
// verify authoritatively.
func PrincipalFromContext(ctx context.Context) (domainauth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domainauth.Principal)
	return p, ok
}

// SetRequestIDInContext returns a child context carrying the request id.
func SetRequestIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func setVerifiedClaims(ctx context.Context, c *domainauth.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionClaimsKey{}, c)
}

// VerifiedClaimsFromContext returns claims set by RequireVerifiedRole.
func VerifiedClaimsFromContext(ctx context.Context) (*domainauth.SessionClaims, bool) {
	c, ok := ctx.Value(sessionClaimsKey{}).(*domainauth.SessionClaims)
	return c, ok && c != nil
}
