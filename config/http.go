package config

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session and CSRF cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// FrontendURL is the upstream serving portal pages. Requests the edge guard
	// allows are proxied there. Empty disables page proxying.
	FrontendURL string `env:"FRONTEND_URL" envDefault:""`

	// LogLevel selects the minimum slog level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	if h.LogLevel == "" {
		h.LogLevel = "info"
	}
	h.CookieDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h.CookieDomain)), ".")
}

// Validate rejects cookie domains that would share session and CSRF cookies
// beyond one registrable domain. A public suffix such as "co.in" or
// "github.io" lets sibling sites plant or read them.
func (h *HTTPConfig) Validate() error {
	if h.CookieDomain == "" {
		return nil
	}
	if net.ParseIP(h.CookieDomain) != nil {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q must be a host name, not an IP address", h.CookieDomain)
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(h.CookieDomain); err != nil {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q has no registrable domain: %w", h.CookieDomain, err)
	}
	return nil
}
