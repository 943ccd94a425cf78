package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Entropy sizes (in bytes before encoding).
const (
	// SecretSize256 provides 256 bits of entropy (64 hex chars).
	SecretSize256 = 32
	// LookupSize48 provides 48 bits for non-secret lookup identifiers (12 hex chars).
	LookupSize48 = 6
)

// RandomBytes reads size bytes from the system CSPRNG.
func RandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("random size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}

// RandomHex returns size random bytes encoded as lowercase hex (2*size chars).
func RandomHex(size int) (string, error) {
	buf, err := RandomBytes(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a value,
// base64url-encoded (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// AuditFingerprint derives a short correlation id for audit log lines from
// non-secret parts (action, key prefix, owner). It is not a security control.
func AuditFingerprint(parts ...string) string {
	return FingerprintToken(strings.Join(parts, "|"))[:16]
}
