package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byName(cs []*http.Cookie) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie, len(cs))
	for _, c := range cs {
		out[c.Name] = c
	}
	return out
}

func TestDeliver(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCookies("example.com", true).Deliver(rec, sessions.TokenPair{AccessToken: "acc", RefreshToken: "ref"})

	cs := byName(rec.Result().Cookies())
	require.Len(t, cs, 2)

	access := cs[common.AccessTokenCookieName]
	require.NotNil(t, access)
	assert.Equal(t, "acc", access.Value)
	assert.Equal(t, 86400, access.MaxAge)

	refresh := cs[common.RefreshTokenCookieName]
	require.NotNil(t, refresh)
	assert.Equal(t, "ref", refresh.Value)
	assert.Equal(t, 31536000, refresh.MaxAge)

	for _, c := range cs {
		assert.True(t, c.HttpOnly, c.Name)
		assert.True(t, c.Secure, c.Name)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite, c.Name)
		assert.Equal(t, "example.com", c.Domain, c.Name)
		assert.Equal(t, "/", c.Path, c.Name)
	}
}

func TestDeliver_HostOnlyInsecure(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCookies("", false).Deliver(rec, sessions.TokenPair{AccessToken: "a", RefreshToken: "r"})

	for _, raw := range rec.Header().Values("Set-Cookie") {
		assert.NotContains(t, raw, "Domain=")
		assert.NotContains(t, raw, "Secure")
		assert.Contains(t, raw, "HttpOnly")
		assert.Contains(t, raw, "SameSite=Strict")
	}
}

func TestDeliver_MaxAgeFollowsValidity(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCookies("", true).
		WithMaxAge(15*time.Minute, 30*24*time.Hour).
		Deliver(rec, sessions.TokenPair{AccessToken: "a", RefreshToken: "r"})

	cs := byName(rec.Result().Cookies())
	require.Len(t, cs, 2)
	assert.Equal(t, 900, cs[common.AccessTokenCookieName].MaxAge)
	assert.Equal(t, 2592000, cs[common.RefreshTokenCookieName].MaxAge)

	rec = httptest.NewRecorder()
	NewCookies("", true).
		WithMaxAge(0, time.Hour).
		Deliver(rec, sessions.TokenPair{AccessToken: "a", RefreshToken: "r"})

	cs = byName(rec.Result().Cookies())
	assert.Equal(t, 86400, cs[common.AccessTokenCookieName].MaxAge, "zero keeps the default")
	assert.Equal(t, 3600, cs[common.RefreshTokenCookieName].MaxAge)
}

func TestClear(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCookies("example.com", true).Clear(rec)

	cs := byName(rec.Result().Cookies())
	require.Len(t, cs, 2)
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := cs[name]
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
	for _, raw := range rec.Header().Values("Set-Cookie") {
		assert.Contains(t, raw, "Max-Age=0")
	}
}
