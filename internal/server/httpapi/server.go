// Package httpapi exposes the session flows over HTTP with cookie delivery.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/logging"
	"github.com/dmitrijs2005/gophsession/internal/server/delivery"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/dmitrijs2005/gophsession/internal/server/sessions"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const shutdownTimeout = 10 * time.Second

// SessionService runs the session flows.
type SessionService interface {
	Register(ctx context.Context, in sessions.RegisterInput) (*sessions.Result, error)
	Login(ctx context.Context, in sessions.LoginInput) (*sessions.Result, error)
	Refresh(ctx context.Context, identityID, recordID string) (*sessions.Result, error)
	Logout(ctx context.Context, recordID string) error
}

// TokenParser verifies tokens presented by clients.
type TokenParser interface {
	ParseAccessToken(token string) (models.Claims, error)
	ParseRefreshToken(token string) (models.Claims, string, error)
}

// KeySet publishes the refresh-token verification keys.
type KeySet interface {
	PublicJWKS() (jwk.Set, error)
}

type Server struct {
	address    string
	httpServer *http.Server
	mux        *http.ServeMux
	sessions   SessionService
	tokens     TokenParser
	keys       KeySet
	cookies    *delivery.Cookies
	logger     logging.Logger
}

func NewServer(address string, l logging.Logger, svc SessionService, tp TokenParser, ks KeySet, cookies *delivery.Cookies) *Server {
	s := &Server{
		address:  address,
		mux:      http.NewServeMux(),
		sessions: svc,
		tokens:   tp,
		keys:     ks,
		cookies:  cookies,
		logger:   l.With("module", "http_server"),
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler is the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := s.httpServer.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
