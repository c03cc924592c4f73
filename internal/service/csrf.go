package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/placementcell/portal-auth/internal/cryptoutil"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
)

const (
	// DefaultCSRFWindow is how long an issued CSRF token stays valid.
	DefaultCSRFWindow = time.Hour
	// MinCSRFSecretLength is the shortest signing secret accepted.
	MinCSRFSecretLength = 32

	csrfTokenBytes = 32
	csrfSeparator  = "|"
)

// CSRFOptions groups configuration for CSRFManager.
type CSRFOptions struct {
	Secret []byte
	Window time.Duration    // Optional: defaults to DefaultCSRFWindow
	Now    func() time.Time // Optional: defaults to time.Now
}

// CSRFManager issues and validates signed, time-boxed anti-forgery tokens
// under the double-submit pattern. It holds no mutable state and is safe for
// concurrent use.
type CSRFManager struct {
	secret []byte
	window time.Duration
	now    func() time.Time
}

// csrfPayload is the signed portion of a token. Timestamp is unix milliseconds.
type csrfPayload struct {
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"`
}

// GuardResult is the outcome of a CSRF check on a request.
type GuardResult struct {
	Valid bool
	Err   error
}

// NewCSRFManager constructs a CSRFManager. The secret must be at least
// MinCSRFSecretLength bytes.
func NewCSRFManager(opts CSRFOptions) (*CSRFManager, error) {
	if len(opts.Secret) < MinCSRFSecretLength {
		return nil, fmt.Errorf("csrf secret must be at least %d bytes, got %d", MinCSRFSecretLength, len(opts.Secret))
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultCSRFWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CSRFManager{
		secret: append([]byte(nil), opts.Secret...),
		window: window,
		now:    now,
	}, nil
}

// Window returns the validity window of issued tokens.
func (m *CSRFManager) Window() time.Duration { return m.window }

// Issue returns a new signed token: base64(JSON(payload) + "|" + hex(HMAC)).
func (m *CSRFManager) Issue() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	payload, err := json.Marshal(csrfPayload{
		Token:     hex.EncodeToString(b),
		Timestamp: m.now().UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("encode csrf payload: %w", err)
	}
	raw := string(payload) + csrfSeparator + cryptoutil.SignHex(payload, m.secret)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// Verify reports whether token carries a valid signature and is within the
// validity window. Every decoding failure yields false.
func (m *CSRFManager) Verify(token string) bool {
	if token == "" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	idx := strings.LastIndex(string(raw), csrfSeparator)
	if idx <= 0 {
		return false
	}
	payload, sig := raw[:idx], string(raw[idx+1:])
	if !cryptoutil.VerifyHex(payload, sig, m.secret) {
		return false
	}

	var p csrfPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Token == "" {
		return false
	}
	elapsed := m.now().UnixMilli() - p.Timestamp
	return elapsed <= m.window.Milliseconds()
}

// ValidateRequest is the double-submit check: both tokens present, byte-equal,
// and the header token verifies on its own.
func (m *CSRFManager) ValidateRequest(headerToken, cookieToken string) bool {
	if headerToken == "" || cookieToken == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookieToken)) != 1 {
		return false
	}
	return m.Verify(headerToken)
}

// Guard applies ValidateRequest to state-changing methods. GET, HEAD and
// OPTIONS always pass.
func (m *CSRFManager) Guard(method, headerToken, cookieToken string) GuardResult {
	if isSafeMethod(method) {
		return GuardResult{Valid: true}
	}
	if m.ValidateRequest(headerToken, cookieToken) {
		return GuardResult{Valid: true}
	}
	return GuardResult{Err: apperrors.CSRFRejected()}
}

func isSafeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
