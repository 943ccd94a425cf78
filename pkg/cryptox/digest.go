package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// MaxPepperSize is the largest key BLAKE2b accepts.
const MaxPepperSize = blake2b.Size

var ErrPepperTooLong = errors.New("cryptox: pepper exceeds 64 bytes")

// Digester computes a one-way digest of secret material. When a pepper is
// configured the digest is a keyed BLAKE2b-256 MAC, so a leaked database alone
// is not enough to mount an offline guessing attack.
type Digester struct {
	pepper []byte
}

// NewDigester returns a Digester keyed with pepper. An empty pepper yields a
// plain BLAKE2b-256 digest.
func NewDigester(pepper []byte) (*Digester, error) {
	if len(pepper) > MaxPepperSize {
		return nil, ErrPepperTooLong
	}
	p := make([]byte, len(pepper))
	copy(p, pepper)
	return &Digester{pepper: p}, nil
}

// Sum returns the raw 32-byte digest of data.
func (d *Digester) Sum(data []byte) []byte {
	h, err := blake2b.New256(d.pepper)
	if err != nil {
		// Only possible with an oversized key, which NewDigester rejects.
		panic(fmt.Sprintf("cryptox: blake2b init: %v", err))
	}
	_, _ = h.Write(data)
	return h.Sum(nil)
}

// HexSum returns the digest of s as lowercase hex (64 chars).
func (d *Digester) HexSum(s string) string {
	return hex.EncodeToString(d.Sum([]byte(s)))
}

// Equal recomputes the digest of s and compares it to the hex-encoded
// expected digest in constant time.
func (d *Digester) Equal(s, expectedHex string) bool {
	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) != blake2b.Size256 {
		return false
	}
	return subtle.ConstantTimeCompare(d.Sum([]byte(s)), expected) == 1
}
