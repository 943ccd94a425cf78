package cryptox

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PepperSize is the size of a freshly generated pepper.
const PepperSize = 32

// LoadOrCreatePepper loads the base64url pepper stored at path, generating
// and persisting a new one when the file does not exist yet.
//
// Losing the pepper invalidates every stored key hash, so the file must be
// backed up together with the database.
func LoadOrCreatePepper(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		pepper, err := RandomBytes(PepperSize)
		if err != nil {
			return nil, err
		}
		encoded := base64.RawURLEncoding.EncodeToString(pepper)
		if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
			return nil, err
		}
		return pepper, nil
	}
	if err != nil {
		return nil, err
	}

	pepper, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode pepper %s: %w", path, err)
	}
	if len(pepper) == 0 || len(pepper) > MaxPepperSize {
		return nil, fmt.Errorf("pepper %s: invalid length %d", path, len(pepper))
	}
	return pepper, nil
}
