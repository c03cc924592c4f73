// Package cryptoutil provides keyed message signatures used to bind
// client-held tokens to a server secret.
package cryptoutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureSize is the length in bytes of a raw signature.
const SignatureSize = sha256.Size

// Sign returns HMAC-SHA256(secret, payload).
func Sign(payload, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Verify reports whether sig is the signature of payload under secret.
// The comparison is constant time. Empty or wrongly sized input returns false.
func Verify(payload, sig, secret []byte) bool {
	if len(sig) != SignatureSize || len(secret) == 0 {
		return false
	}
	return hmac.Equal(Sign(payload, secret), sig)
}

// SignHex returns the lowercase hex encoding of Sign(payload, secret).
func SignHex(payload, secret []byte) string {
	return hex.EncodeToString(Sign(payload, secret))
}

// VerifyHex is Verify for a hex-encoded signature. Malformed hex returns false.
func VerifyHex(payload []byte, sigHex string, secret []byte) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	return Verify(payload, sig, secret)
}
