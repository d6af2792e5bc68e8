package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/logging"
	"github.com/dmitrijs2005/gophsession/internal/server/config"
	"github.com/dmitrijs2005/gophsession/internal/server/keys"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	privPEM, pubPEM, err := keys.GenerateRefreshKeyPair()
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "refresh.pem")
	pubPath := filepath.Join(dir, "refresh.pub.pem")
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.EndpointAddrHTTP = "127.0.0.1:0"
	cfg.StoreDriver = config.StoreDriverMemory
	cfg.AccessTokenSecret = keys.GenerateAccessSecret()
	cfg.RefreshPrivateKeySource = privPath
	cfg.RefreshPublicKeySource = "file://" + pubPath
	cfg.CleanupInterval = 10 * time.Millisecond
	return cfg
}

func TestNewApp_MissingKeyMaterialIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.RefreshPrivateKeySource = ""

	_, err := NewApp(context.Background(), cfg, logging.Discard())
	require.ErrorIs(t, err, common.ErrSigningKeyUnavailable)

	cfg = testConfig(t)
	cfg.AccessTokenSecret = "short"
	_, err = NewApp(context.Background(), cfg, logging.Discard())
	require.ErrorIs(t, err, common.ErrSigningKeyUnavailable)
}

func TestNewApp_UnknownStoreDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "cassandra"

	_, err := NewApp(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestApp_SeedsAdminAndStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminEmail = "root@example.com"
	cfg.AdminPassword = "changeme"

	app, err := NewApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		found, err := app.identities.FindByEmailWithCredential(context.Background(), "root@example.com")
		return err == nil && found.Identity.Role == models.RoleAdmin
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminEmail = "root@example.com"
	cfg.AdminPassword = "changeme"

	app, err := NewApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, app.seedAdmin(ctx))
	first, err := app.identities.FindByEmailWithCredential(ctx, cfg.AdminEmail)
	require.NoError(t, err)

	require.NoError(t, app.seedAdmin(ctx))
	second, err := app.identities.FindByEmailWithCredential(ctx, cfg.AdminEmail)
	require.NoError(t, err)
	assert.Equal(t, first.Identity.ID, second.Identity.ID)
}

func TestSeedAdmin_SkippedWithoutCredentials(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, app.seedAdmin(context.Background()))
}
