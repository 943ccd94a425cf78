// Package keyx implements the opaque API key format.
//
// A key looks like
//
//	ak_0123456789ab_<64 lowercase hex chars>
//	└─────┬───────┘ └──────────┬───────────┘
//	   prefix              secret
//
// The prefix ("ak_" plus 12 hex chars) is non-secret and is the only value
// used to look a key up in storage. The stored hash covers the whole key, so
// knowing a prefix never helps to forge the secret half.
package keyx

import (
	"errors"
	"regexp"
	"strings"

	"github.com/aussiebroadwan/apikeys/pkg/cryptox"
)

const (
	// Scheme is the literal every key starts with.
	Scheme = "ak_"
	// Delimiter separates the prefix from the secret.
	Delimiter = '_'

	lookupLen = cryptox.LookupSize48 * 2
	secretLen = cryptox.SecretSize256 * 2

	// PrefixLen is the length of the stored lookup prefix.
	PrefixLen = len(Scheme) + lookupLen
	// KeyLen is the total length of a well formed key.
	KeyLen = PrefixLen + 1 + secretLen

	previewMask = "********"
)

var (
	ErrMalformedEmpty     = errors.New("keyx: key is empty")
	ErrMalformedLength    = errors.New("keyx: key has the wrong length")
	ErrMalformedScheme    = errors.New("keyx: key has an unknown scheme")
	ErrMalformedDelimiter = errors.New("keyx: key delimiter missing")
	ErrMalformedCharset   = errors.New("keyx: key contains invalid characters")
)

var keyPattern = regexp.MustCompile(`ak_[0-9a-f]{12}_[0-9a-f]{64}`)

// Generated is the output of Codec.Generate. Key is the only copy of the
// secret and must be handed to the caller once and then dropped.
type Generated struct {
	Key     string
	Prefix  string
	Hash    string
	Preview string
}

// Parsed is the result of structural validation.
type Parsed struct {
	Prefix string
	Valid  bool
	Err    error
}

// Codec generates, parses and verifies API keys. It is safe for concurrent
// use.
type Codec struct {
	digest *cryptox.Digester
}

// NewCodec returns a Codec whose hashes are keyed with pepper (may be empty).
func NewCodec(pepper []byte) (*Codec, error) {
	d, err := cryptox.NewDigester(pepper)
	if err != nil {
		return nil, err
	}
	return &Codec{digest: d}, nil
}

// Generate creates a new random key.
func (c *Codec) Generate() (Generated, error) {
	lookup, err := cryptox.RandomHex(cryptox.LookupSize48)
	if err != nil {
		return Generated{}, err
	}
	secret, err := cryptox.RandomHex(cryptox.SecretSize256)
	if err != nil {
		return Generated{}, err
	}

	prefix := Scheme + lookup
	key := prefix + string(Delimiter) + secret

	return Generated{
		Key:     key,
		Prefix:  prefix,
		Hash:    c.Hash(key),
		Preview: Preview(prefix),
	}, nil
}

// Hash returns the hex digest stored for key.
func (c *Codec) Hash(key string) string {
	return c.digest.HexSum(key)
}

// Parse checks the structure of candidate without touching storage.
func (c *Codec) Parse(candidate string) Parsed {
	return Parse(candidate)
}

// Verify reports whether candidate hashes to storedHash. The comparison runs
// in constant time.
func (c *Codec) Verify(candidate, storedHash string) bool {
	return c.digest.Equal(strings.TrimSpace(candidate), storedHash)
}

// Parse checks the structure of candidate. Surrounding whitespace is ignored.
func Parse(candidate string) Parsed {
	candidate = strings.TrimSpace(candidate)

	switch {
	case candidate == "":
		return malformed(ErrMalformedEmpty)
	case len(candidate) != KeyLen:
		return malformed(ErrMalformedLength)
	case !strings.HasPrefix(candidate, Scheme):
		return malformed(ErrMalformedScheme)
	case candidate[PrefixLen] != Delimiter:
		return malformed(ErrMalformedDelimiter)
	}

	if !isLowerHex(candidate[len(Scheme):PrefixLen]) || !isLowerHex(candidate[PrefixLen+1:]) {
		return malformed(ErrMalformedCharset)
	}

	return Parsed{Prefix: candidate[:PrefixLen], Valid: true}
}

// Preview returns the display-safe form of a key with the given prefix.
func Preview(prefix string) string {
	return prefix + string(Delimiter) + previewMask
}

// IsPrefix reports whether s is a well formed key prefix.
func IsPrefix(s string) bool {
	return len(s) == PrefixLen && strings.HasPrefix(s, Scheme) && isLowerHex(s[len(Scheme):])
}

// Redact replaces every full key embedded in s with its preview.
func Redact(s string) string {
	if !strings.Contains(s, Scheme) {
		return s
	}
	return keyPattern.ReplaceAllStringFunc(s, func(key string) string {
		return Preview(key[:PrefixLen])
	})
}

func malformed(err error) Parsed {
	return Parsed{Err: err}
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}
