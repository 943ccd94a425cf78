package cli_test

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/aussiebroadwan/apikeys/cmd/apikeys/cli"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/app"
	"github.com/aussiebroadwan/apikeys/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("c", jwtx.MinSecretSize)

func setEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APIKEYS_JWT_SECRET", secret)
	t.Setenv("APIKEYS_DATABASE_FILE", filepath.Join(dir, "apikeys.db"))
	t.Setenv("APIKEYS_PEPPER_FILE", filepath.Join(dir, "pepper"))
	t.Setenv("APIKEYS_LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTokenCmd(t *testing.T) {
	setEnv(t)

	out, err := run(t, "token", "--subject", "user-1", "--admin")
	require.NoError(t, err)

	h, err := jwtx.NewHS256([]byte(secret), "apikeys")
	require.NoError(t, err)
	claims, err := h.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(jwtx.ScopeAdmin))
}

func TestMigrateCmd(t *testing.T) {
	setEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "Migrations applied (sqlite)")
}

func TestKeyCmds(t *testing.T) {
	setEnv(t)

	cfg, err := app.LoadConfig("")
	require.NoError(t, err)
	a, err := app.New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start())
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Shutdown()
	})

	out, err := run(t, "key", "create", "--server", srv.URL, "--as", "user-1",
		"--name", "CI pipeline", "--scope", "billing:read", "--days", "30")
	require.NoError(t, err)
	require.Contains(t, out, "API Key created:")
	key := regexp.MustCompile(`ak_[0-9a-f]{12}_[0-9a-f]{64}`).FindString(out)
	require.NotEmpty(t, key)
	id := regexp.MustCompile(`ID:\s+(\S+)`).FindStringSubmatch(out)[1]

	out, err = run(t, "key", "list", "--server", srv.URL, "--as", "user-1")
	require.NoError(t, err)
	require.Contains(t, out, id)
	require.Contains(t, out, "billing:read")
	require.NotContains(t, out, key)

	out, err = run(t, "key", "rotate", id, "--server", srv.URL, "--as", "user-1")
	require.NoError(t, err)
	require.Contains(t, out, "CI pipeline (Rotated)")

	out, err = run(t, "key", "revoke", id, "--server", srv.URL, "--as", "user-1")
	require.NoError(t, err)
	require.Contains(t, out, "revoked")

	_, err = run(t, "key", "revoke", id, "--server", srv.URL, "--as", "user-2")
	require.ErrorContains(t, err, "permission_denied")

	_, err = run(t, "key", "list", "--server", srv.URL)
	require.ErrorContains(t, err, "--token or --as")
}
