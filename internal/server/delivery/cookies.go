// Package delivery hands issued tokens to the browser as cookies.
package delivery

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/sessions"
)

const (
	AccessTokenMaxAge  = 24 * time.Hour
	RefreshTokenMaxAge = 365 * 24 * time.Hour
)

// Cookies writes the access and refresh tokens as HttpOnly, SameSite=Strict
// cookies scoped to Domain.
type Cookies struct {
	Domain        string
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func NewCookies(domain string, secure bool) *Cookies {
	return &Cookies{
		Domain:        domain,
		Secure:        secure,
		AccessMaxAge:  AccessTokenMaxAge,
		RefreshMaxAge: RefreshTokenMaxAge,
	}
}

// WithMaxAge aligns cookie lifetimes with the token validities. Zero keeps
// the current value.
func (c *Cookies) WithMaxAge(access, refresh time.Duration) *Cookies {
	if access > 0 {
		c.AccessMaxAge = access
	}
	if refresh > 0 {
		c.RefreshMaxAge = refresh
	}
	return c
}

// Deliver sets both token cookies on w.
func (c *Cookies) Deliver(w http.ResponseWriter, pair sessions.TokenPair) {
	http.SetCookie(w, c.cookie(common.AccessTokenCookieName, pair.AccessToken, c.AccessMaxAge))
	http.SetCookie(w, c.cookie(common.RefreshTokenCookieName, pair.RefreshToken, c.RefreshMaxAge))
}

// Clear expires both token cookies.
func (c *Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func (c *Cookies) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(maxAge / time.Second),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
