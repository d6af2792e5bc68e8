// Package client is the HTTP client for the session server API.
//
// Session tokens travel as cookies; the client keeps them in an in-memory
// cookie jar, so a process holds at most one session at a time. Me renews an
// expired access token through the refresh endpoint once before giving up.
//
// # Error Handling
//
// Transport failures and 503 responses map to ErrUnavailable, 401 to
// ErrUnauthorized and 400 to ErrBadRequest. The server's message is kept in
// the wrapped error text.
package client
