package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/flagx"
)

// parseFlags applies command-line flags on top of config.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-m string   refresh token store: postgres, redis or memory
//	-q string   Redis address
//	-s string   access token HMAC secret (at least 32 bytes)
//	-k string   refresh private key source (path, file:// or s3://)
//	-v string   refresh public key source, derived when empty
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-i string   token issuer
//	-o string   cookie domain
//	-x bool     Secure cookie attribute (use -x=false to disable)
//	-l int      expired refresh token cleanup interval, minutes
//	-n string   administrator email to seed
//	-w string   administrator password to seed
//	-y string   log level
//	-u -p -b -g -e  S3 user, password, bucket, region, base endpoint
//
// Only these flags are picked out of os.Args, so -c and foreign flags do
// not make parsing fail.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StoreDriver, "m", config.StoreDriver, "refresh token store driver")
	fs.StringVar(&config.RedisAddr, "q", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshPrivateKeySource, "k", config.RefreshPrivateKeySource, "refresh private key source")
	fs.StringVar(&config.RefreshPublicKeySource, "v", config.RefreshPublicKeySource, "refresh public key source")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.StringVar(&config.CookieDomain, "o", config.CookieDomain, "cookie domain")
	fs.BoolVar(&config.CookieSecure, "x", config.CookieSecure, "secure cookies")

	cleanupInterval := fs.Int("l", int(config.CleanupInterval.Minutes()), "cleanup_interval (in minutes)")

	fs.StringVar(&config.AdminEmail, "n", config.AdminEmail, "administrator email")
	fs.StringVar(&config.AdminPassword, "w", config.AdminPassword, "administrator password")
	fs.StringVar(&config.LogLevel, "y", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(flagx.ShortFlags(fs, os.Args[1:])); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.CleanupInterval = time.Duration(*cleanupInterval) * time.Minute
}
