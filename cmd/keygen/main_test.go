package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophsession/internal/server/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WritesLoadableKeys(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, run([]string{"-o", dir}, &out))

	var secret string
	for _, line := range strings.Split(out.String(), "\n") {
		if v, ok := strings.CutPrefix(line, "access_token_secret: "); ok {
			secret = v
		}
	}
	require.NotEmpty(t, secret)

	info, err := os.Stat(filepath.Join(dir, "refresh.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	m, err := keys.Load(context.Background(), keys.Sources{
		AccessSecret:      secret,
		RefreshPrivateKey: filepath.Join(dir, "refresh.pem"),
		RefreshPublicKey:  filepath.Join(dir, "refresh.pub.pem"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.KeyID())
}

func TestRun_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, run([]string{"-o", dir, "-n", "k"}, &out))
	require.Error(t, run([]string{"-o", dir, "-n", "k"}, &out))
	require.NoError(t, run([]string{"-o", dir, "-n", "k", "-f"}, &out))
}

func TestRun_BadFlag(t *testing.T) {
	require.Error(t, run([]string{"-zzz"}, &bytes.Buffer{}))
}
