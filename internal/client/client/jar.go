package client

import (
	"net"
	"net/http"
	"net/url"
)

// loopbackJar treats plain-http loopback hosts as secure origins, as browsers
// do for localhost, so Secure session cookies are kept and sent back in local
// setups without TLS.
type loopbackJar struct {
	http.CookieJar
}

func (j loopbackJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.CookieJar.SetCookies(secureOrigin(u), cookies)
}

func (j loopbackJar) Cookies(u *url.URL) []*http.Cookie {
	return j.CookieJar.Cookies(secureOrigin(u))
}

func secureOrigin(u *url.URL) *url.URL {
	if u.Scheme != "http" || !isLoopback(u.Hostname()) {
		return u
	}
	cp := *u
	cp.Scheme = "https"
	return &cp
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
