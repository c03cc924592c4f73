package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// MinCSRFSecretLength is the minimum accepted CSRF signing secret length in bytes.
const MinCSRFSecretLength = 32

// IdentityConfig holds the identity backend service credentials.
// The private key signs session credentials; the issuer URL identifies the
// provider whose short-lived ID tokens are exchanged at login.
type IdentityConfig struct {
	ProjectID   string `env:"PROJECT_ID"`
	ClientEmail string `env:"CLIENT_EMAIL"`
	PrivateKey  string `env:"PRIVATE_KEY"`
	IssuerURL   string `env:"ISSUER_URL"`
	// Audience expected in identity proofs. Defaults to ProjectID when empty.
	Audience string `env:"AUDIENCE"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// CSRFSecret signs CSRF tokens. Must be at least MinCSRFSecretLength bytes.
	CSRFSecret string `env:"CSRF_SECRET"`

	// CSRFWindow is how long an issued CSRF token stays valid.
	CSRFWindow time.Duration `env:"CSRF_WINDOW" envDefault:"1h"`

	// SessionMaxAge bounds session credential lifetime and cookie Max-Age.
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"120h"`

	// SessionCookieName is the cookie carrying the session credential.
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"session"`

	// Identity backend credentials.
	Identity IdentityConfig `envPrefix:"IDENTITY_"`
}

// Sanitize normalizes auth values loaded from env.
func (a *AuthConfig) Sanitize() {
	a.Identity.ProjectID = strings.TrimSpace(a.Identity.ProjectID)
	a.Identity.ClientEmail = strings.TrimSpace(a.Identity.ClientEmail)
	a.Identity.IssuerURL = strings.TrimSpace(a.Identity.IssuerURL)
	a.Identity.Audience = strings.TrimSpace(a.Identity.Audience)
	if a.Identity.Audience == "" {
		a.Identity.Audience = a.Identity.ProjectID
	}
	// Deployment tooling commonly stores PEM keys with literal "\n" sequences.
	a.Identity.PrivateKey = strings.ReplaceAll(a.Identity.PrivateKey, `\n`, "\n")
	if strings.TrimSpace(a.SessionCookieName) == "" {
		a.SessionCookieName = "session"
	}
	if a.CSRFWindow <= 0 {
		a.CSRFWindow = time.Hour
	}
	if a.SessionMaxAge <= 0 {
		a.SessionMaxAge = 5 * 24 * time.Hour
	}
}

// Validate reports every missing or malformed auth value.
func (a *AuthConfig) Validate() error {
	var errs []error
	if len(a.CSRFSecret) < MinCSRFSecretLength {
		errs = append(errs, fmt.Errorf("CSRF_SECRET must be at least %d bytes", MinCSRFSecretLength))
	}
	if a.Identity.ProjectID == "" {
		errs = append(errs, errors.New("IDENTITY_PROJECT_ID is required"))
	}
	if _, err := mail.ParseAddress(a.Identity.ClientEmail); err != nil {
		errs = append(errs, fmt.Errorf("IDENTITY_CLIENT_EMAIL is invalid: %w", err))
	}
	if _, err := a.Identity.RSAPrivateKey(); err != nil {
		errs = append(errs, fmt.Errorf("IDENTITY_PRIVATE_KEY: %w", err))
	}
	if u, err := url.Parse(a.Identity.IssuerURL); err != nil || !u.IsAbs() {
		errs = append(errs, errors.New("IDENTITY_ISSUER_URL must be an absolute URL"))
	}
	return errors.Join(errs...)
}

// RSAPrivateKey parses the PEM-encoded private key (PKCS#8 or PKCS#1).
func (c IdentityConfig) RSAPrivateKey() (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(c.PrivateKey))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}
