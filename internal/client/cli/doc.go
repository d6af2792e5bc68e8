// Package cli provides the interactive command-line client for the session
// server.
//
// It wires configuration, the HTTP API client and a small REPL. The session
// lives only in the process: tokens are kept in the client's cookie jar and
// are lost on exit.
//
// Commands:
//   - register, login, logout
//   - refresh (rotate the session explicitly)
//   - me (show the current access token claims)
//   - ping, help, exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
