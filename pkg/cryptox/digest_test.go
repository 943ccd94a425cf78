package cryptox_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/apikeys/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestDigester(t *testing.T) {
	d, err := cryptox.NewDigester([]byte("pepper"))
	require.NoError(t, err)

	sum := d.HexSum("secret")
	require.Len(t, sum, 64)
	require.Equal(t, sum, d.HexSum("secret"), "digest should be deterministic")
	require.True(t, d.Equal("secret", sum))
	require.False(t, d.Equal("secreT", sum))
	require.False(t, d.Equal("secret", "not-hex"))
	require.False(t, d.Equal("secret", sum[:32]))
}

func TestDigester_PepperChangesDigest(t *testing.T) {
	plain, err := cryptox.NewDigester(nil)
	require.NoError(t, err)
	keyed, err := cryptox.NewDigester([]byte("pepper"))
	require.NoError(t, err)

	require.NotEqual(t, plain.HexSum("secret"), keyed.HexSum("secret"))
	require.False(t, keyed.Equal("secret", plain.HexSum("secret")))
}

func TestDigester_RejectsLongPepper(t *testing.T) {
	_, err := cryptox.NewDigester(bytes.Repeat([]byte("x"), cryptox.MaxPepperSize+1))
	require.ErrorIs(t, err, cryptox.ErrPepperTooLong)
}

func TestLoadOrCreatePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	created, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Len(t, created, cryptox.PepperSize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, created, loaded, "second load must return the persisted pepper")
}

func TestLoadOrCreatePepper_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pepper")
	require.NoError(t, os.WriteFile(path, []byte("!!not base64!!"), 0o600))

	_, err := cryptox.LoadOrCreatePepper(path)
	require.Error(t, err)
}
