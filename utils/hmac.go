package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// ComputeHMACSHA256 computes an HMAC-SHA256 signature over message and
// returns it hex-encoded. Used to verify model API webhook deliveries.
func ComputeHMACSHA256(secretKey string, message []byte) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}

// SecureCompare performs constant-time string comparison to prevent timing
// attacks. This MUST be used when comparing signatures.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
