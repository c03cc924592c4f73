package auth

import (
	"path"
	"strings"
)

// RouteCategory is the access class a request path resolves to.
type RouteCategory string

const (
	RoutePublic    RouteCategory = "public"
	RouteAuth      RouteCategory = "auth"
	RouteProtected RouteCategory = "protected"
	RouteAdmin     RouteCategory = "admin"
	RouteNone      RouteCategory = "none"
)

// RouteRule matches a path either exactly or as a segment prefix.
// A prefix rule for "/admin" matches "/admin" and "/admin/students" but not "/administer".
type RouteRule struct {
	Path     string
	Prefix   bool
	Category RouteCategory
}

// Matches reports whether p falls under the rule.
func (r RouteRule) Matches(p string) bool {
	if p == r.Path {
		return true
	}
	if !r.Prefix {
		return false
	}
	base := strings.TrimSuffix(r.Path, "/")
	return strings.HasPrefix(p, base+"/")
}

// RoutePolicy is an ordered table of rules. Classify walks it in order and the
// first matching rule wins, so the order of Rules is part of the policy.
type RoutePolicy struct {
	Rules []RouteRule
	// AssetPrefixes are exempt from classification along with any path whose
	// last segment has a file extension.
	AssetPrefixes []string
}

// DefaultRoutePolicy returns the portal's route table evaluated public, auth,
// protected, admin.
func DefaultRoutePolicy() RoutePolicy {
	return RoutePolicy{
		Rules: []RouteRule{
			{Path: "/", Category: RoutePublic},
			{Path: "/about", Prefix: true, Category: RoutePublic},
			{Path: "/contact", Prefix: true, Category: RoutePublic},
			{Path: "/healthz", Category: RoutePublic},

			{Path: "/login", Prefix: true, Category: RouteAuth},
			{Path: "/register", Prefix: true, Category: RouteAuth},

			{Path: "/dashboard", Prefix: true, Category: RouteProtected},
			{Path: "/profile", Prefix: true, Category: RouteProtected},
			{Path: "/applications", Prefix: true, Category: RouteProtected},
			{Path: "/drives", Prefix: true, Category: RouteProtected},

			{Path: "/admin", Prefix: true, Category: RouteAdmin},
		},
		AssetPrefixes: []string{"/_next/", "/static/", "/assets/"},
	}
}

// IsAsset reports whether p is a static asset path exempt from classification.
func (p RoutePolicy) IsAsset(urlPath string) bool {
	for _, prefix := range p.AssetPrefixes {
		if strings.HasPrefix(urlPath, prefix) {
			return true
		}
	}
	return path.Ext(path.Base(urlPath)) != ""
}

// Classify resolves urlPath to exactly one category.
func (p RoutePolicy) Classify(urlPath string) RouteCategory {
	for _, rule := range p.Rules {
		if rule.Matches(urlPath) {
			return rule.Category
		}
	}
	return RouteNone
}

// RequiresAuth reports whether the category needs an authenticated principal.
func (c RouteCategory) RequiresAuth() bool {
	return c == RouteProtected || c == RouteAdmin
}
