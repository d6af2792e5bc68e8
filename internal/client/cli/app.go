package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/gophsession/internal/client/client"
	"github.com/dmitrijs2005/gophsession/internal/client/config"
)

// sessionAPI is the part of client.HTTPClient the commands use.
type sessionAPI interface {
	Register(ctx context.Context, email string, password []byte, firstName, lastName string) (*client.User, error)
	Login(ctx context.Context, email string, password []byte) (*client.User, error)
	Refresh(ctx context.Context) (*client.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*client.Claims, error)
	Ping(ctx context.Context) error
	HasSession() bool
}

type App struct {
	config *config.Config
	api    sessionAPI
	email  string
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) isLoggedIn() bool {
	return a.api.HasSession()
}

func (a *App) status() string {
	if a.isLoggedIn() && a.email != "" {
		return "(" + a.email + ")"
	}
	return ""
}

// Run starts the REPL on stdin and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("Session CLI (type 'help' for commands)")
	if err := a.api.Ping(ctx); err != nil {
		printlnFn("Warning:", err)
	}
	runREPL(ctx, a, a.status, a.reader)
}
