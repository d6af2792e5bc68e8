// Package server wires the session server together: key material, stores,
// the session flows, the HTTP API and the expiry janitor.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophsession/internal/logging"
	"github.com/dmitrijs2005/gophsession/internal/server/config"
	"github.com/dmitrijs2005/gophsession/internal/server/delivery"
	"github.com/dmitrijs2005/gophsession/internal/server/httpapi"
	"github.com/dmitrijs2005/gophsession/internal/server/identity"
	"github.com/dmitrijs2005/gophsession/internal/server/janitor"
	"github.com/dmitrijs2005/gophsession/internal/server/keys"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/dmitrijs2005/gophsession/internal/server/passwords"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophsession/internal/server/sessions"
	"github.com/dmitrijs2005/gophsession/internal/server/tokens"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	identities  *identity.Provider
	httpServer  *httpapi.Server
}

// NewApp loads key material and opens the stores. Missing or malformed key
// material is returned as an error wrapping common.ErrSigningKeyUnavailable
// before anything is opened.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	material, err := keys.Load(ctx, keys.Sources{
		AccessSecret:      c.AccessTokenSecret,
		RefreshPrivateKey: c.RefreshPrivateKeySource,
		RefreshPublicKey:  c.RefreshPublicKeySource,
		S3: keys.S3Settings{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("key material: %w", err)
	}

	rm, err := repomanager.New(ctx, repomanager.Options{
		Driver:          c.StoreDriver,
		DatabaseDSN:     c.DatabaseDSN,
		RedisAddr:       c.RedisAddr,
		RefreshValidity: c.RefreshTokenValidityDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	ids := identity.NewProvider(rm, passwords.NewHasher(passwords.DefaultParams), logger)
	issuer := tokens.NewIssuer(material, rm.RefreshTokens(), tokens.Options{
		Issuer:          c.TokenIssuer,
		AccessValidity:  c.AccessTokenValidityDuration,
		RefreshValidity: c.RefreshTokenValidityDuration,
	})
	svc := sessions.NewService(ids, issuer, logger)
	cookies := delivery.NewCookies(c.CookieDomain, c.CookieSecure).
		WithMaxAge(c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		identities:  ids,
		httpServer:  httpapi.NewServer(c.EndpointAddrHTTP, logger, svc, issuer, material, cookies),
	}, nil
}

// seedAdmin creates the configured administrator if it does not exist yet.
func (app *App) seedAdmin(ctx context.Context) error {
	if app.config.AdminEmail == "" || app.config.AdminPassword == "" {
		return nil
	}
	_, created, err := app.identities.EnsureIdentity(ctx, models.IdentityFields{
		Email:    app.config.AdminEmail,
		Password: app.config.AdminPassword,
	}, models.RoleAdmin)
	if err != nil {
		return err
	}
	if !created {
		app.logger.Info(ctx, "admin identity already present", "email", app.config.AdminEmail)
	}
	return nil
}

// Run serves until ctx is canceled or SIGINT/SIGTERM/SIGQUIT arrives, then
// stops the HTTP server and the janitor and closes the stores.
func (app *App) Run(ctx context.Context) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	defer func() {
		if cerr := app.repomanager.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close stores: %w", cerr))
		}
	}()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver)

	if err := app.seedAdmin(ctx); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.httpServer.Run(gctx)
	})
	g.Go(func() error {
		return janitor.Run(gctx, app.repomanager.RefreshTokens(), app.config.CleanupInterval, app.logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
