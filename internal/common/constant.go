package common

const (
	// AccessTokenCookieName is the cookie carrying the access token.
	AccessTokenCookieName = "access_token"

	// RefreshTokenCookieName is the cookie carrying the refresh token.
	RefreshTokenCookieName = "refresh_token"
)
