package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
)

// User is the identity summary returned by register, login and refresh.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Tenant    string `json:"tenant"`
}

// Claims mirrors the access token payload returned by /auth/me.
type Claims struct {
	Subject   string `json:"sub"`
	Role      string `json:"role"`
	Tenant    string `json:"tenant"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type HTTPClient struct {
	base *url.URL
	http *http.Client
}

func NewHTTPClient(serverURL string, timeout time.Duration) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url: unsupported scheme %q", base.Scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &HTTPClient{
		base: base,
		http: &http.Client{Jar: loopbackJar{jar}, Timeout: timeout},
	}, nil
}

// HasSession reports whether a refresh cookie is held.
func (c *HTTPClient) HasSession() bool {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == common.RefreshTokenCookieName && ck.Value != "" {
			return true
		}
	}
	return false
}

func (c *HTTPClient) Register(ctx context.Context, email string, password []byte, firstName, lastName string) (*User, error) {
	body := map[string]string{
		"email":     email,
		"password":  string(password),
		"firstName": firstName,
		"lastName":  lastName,
	}
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*User, error) {
	body := map[string]string{"email": email, "password": string(password)}
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Refresh rotates the session and replaces both cookies.
func (c *HTTPClient) Refresh(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the claims of the current access token, refreshing once if the
// server rejects it.
func (c *HTTPClient) Me(ctx context.Context) (*Claims, error) {
	var out struct {
		Claims Claims `json:"claims"`
	}
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	if errors.Is(err, ErrUnauthorized) && c.HasSession() {
		if _, rerr := c.Refresh(ctx); rerr != nil {
			return nil, rerr
		}
		err = c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out.Claims, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
	if e.Error == "" {
		e.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, e.Error)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, e.Error)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, e.Error)
	}
	return fmt.Errorf("server error %d: %s", resp.StatusCode, e.Error)
}
