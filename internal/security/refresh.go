package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const refreshSecretBytes = 32

// NewRefreshSecret returns a fresh opaque refresh secret: 32 bytes of
// cryptographic randomness, base64url-encoded. The raw value is returned to
// the client exactly once; only its fingerprint is ever persisted.
func NewRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintSecret derives the storable fingerprint of a raw refresh secret:
// hex-encoded HMAC-SHA256 keyed with the server-side hash secret. One-way and
// deterministic for a fixed key; there is no decode path.
func FingerprintSecret(raw, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// TruncateFingerprint shortens a fingerprint for log output. Full
// fingerprints never appear in logs.
func TruncateFingerprint(fp string) string {
	if len(fp) <= 8 {
		return fp
	}
	return fp[:8]
}
