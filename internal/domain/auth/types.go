package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and token claims.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTPO     Role = "tpo"
	RoleStudent Role = "student"
)

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q (valid options: admin, tpo, student)", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTPO, RoleStudent:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role may access the admin area.
func (r Role) IsStaff() bool { return r == RoleAdmin || r == RoleTPO }

// Identity is the principal proven by a short-lived identity credential.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	IssuedAt      time.Time // when the identity proof was issued (sign-in time)
}

// PrincipalClaims is the out-of-band metadata attached to a principal in the
// authoritative identity store. It is copied into session credentials at mint time.
type PrincipalClaims struct {
	Role        Role   `json:"role,omitempty"`
	ProgramCode string `json:"program_code,omitempty"`
}

// SessionClaims is the payload carried by a session credential.
// Role is whatever was stored when the credential was minted; it is never
// refreshed for the lifetime of the credential.
type SessionClaims struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Role          Role      `json:"role,omitempty"`
	ProgramCode   string    `json:"program_code,omitempty"`
	IssuedAt      time.Time `json:"-"`
	ExpiresAt     time.Time `json:"-"`
}

// Expired reports whether the claims are past their expiry at now.
func (c SessionClaims) Expired(now time.Time) bool {
	return c.ExpiresAt.IsZero() || !now.Before(c.ExpiresAt)
}

// Principal returns the routing identity derived from the claims.
func (c SessionClaims) Principal() Principal {
	return Principal{UID: c.UID, Email: c.Email, Role: c.Role}
}

// Principal is the resolved identity forwarded to downstream handlers for a request.
type Principal struct {
	UID   string
	Email string
	Role  Role
}

// Landing routes for authenticated principals.
const (
	StudentLandingPath = "/dashboard"
	StaffLandingPath   = "/admin"
)

// LandingPath returns the route an authenticated principal is sent to from
// login/register pages.
func LandingPath(r Role) string {
	if r.IsStaff() {
		return StaffLandingPath
	}
	return StudentLandingPath
}
