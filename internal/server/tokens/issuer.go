// Package tokens signs and verifies session tokens and manages the refresh
// token records behind them.
//
// Access tokens are HS256 JWTs, stateless and not revocable. Refresh tokens
// are EdDSA JWTs carrying the id of a store record; deleting the record
// revokes the token.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/keys"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/refreshtokens"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessValidity  = 24 * time.Hour
	DefaultRefreshValidity = 365 * 24 * time.Hour
	DefaultIssuer          = "gophsession"
)

// Options tune token lifetimes and the iss claim. Zero values use defaults.
type Options struct {
	Issuer          string
	AccessValidity  time.Duration
	RefreshValidity time.Duration
}

type keyIdentifier interface {
	KeyID() string
}

// Issuer is safe for concurrent use; it holds no mutable state.
type Issuer struct {
	keys            keys.Provider
	keyID           string
	store           refreshtokens.Repository
	issuer          string
	accessValidity  time.Duration
	refreshValidity time.Duration
	nowFunc         func() time.Time
}

func NewIssuer(k keys.Provider, store refreshtokens.Repository, opts Options) *Issuer {
	i := &Issuer{
		keys:            k,
		store:           store,
		issuer:          opts.Issuer,
		accessValidity:  opts.AccessValidity,
		refreshValidity: opts.RefreshValidity,
	}
	if i.issuer == "" {
		i.issuer = DefaultIssuer
	}
	if i.accessValidity <= 0 {
		i.accessValidity = DefaultAccessValidity
	}
	if i.refreshValidity <= 0 {
		i.refreshValidity = DefaultRefreshValidity
	}
	if ki, ok := k.(keyIdentifier); ok {
		i.keyID = ki.KeyID()
	}
	return i
}

func (i *Issuer) now() time.Time {
	if i.nowFunc == nil {
		return time.Now()
	}
	return i.nowFunc()
}

// IssueAccessToken signs claims into an access token valid for the access
// lifetime.
func (i *Issuer) IssueAccessToken(claims models.Claims) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}

	key, err := i.keys.SigningKey(keys.AccessToken)
	if err != nil {
		return "", err
	}

	now := i.now()
	p := newAccessPayload(claims, i.issuer, jwt.NewNumericDate(now), jwt.NewNumericDate(now.Add(i.accessValidity)))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, p).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign access token: %v", common.ErrSigningKeyUnavailable, err)
	}
	return signed, nil
}

// IssueRefreshToken signs claims plus recordID into a refresh token. The
// record must already be persisted.
func (i *Issuer) IssueRefreshToken(claims models.Claims, recordID string) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}
	if recordID == "" {
		return "", common.NewValidationError("id", "is required")
	}

	key, err := i.keys.SigningKey(keys.RefreshToken)
	if err != nil {
		return "", err
	}

	now := i.now()
	p := refreshPayload{
		accessPayload: newAccessPayload(claims, i.issuer, jwt.NewNumericDate(now), jwt.NewNumericDate(now.Add(i.refreshValidity))),
		ID:            recordID,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, p)
	if i.keyID != "" {
		tok.Header["kid"] = i.keyID
	}

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign refresh token: %v", common.ErrSigningKeyUnavailable, err)
	}
	return signed, nil
}

// PersistRefreshToken creates the store record a refresh token will carry.
func (i *Issuer) PersistRefreshToken(ctx context.Context, ownerID string) (*models.RefreshTokenRecord, error) {
	rec, err := i.store.Create(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return rec, nil
}

// RevokeRefreshToken deletes the record. An absent record is not an error;
// revoked tells whether this call removed it.
func (i *Issuer) RevokeRefreshToken(ctx context.Context, recordID string) (revoked bool, err error) {
	revoked, err = i.store.DeleteByID(ctx, recordID)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return revoked, nil
}

// ParseAccessToken verifies an access token and returns its claims.
func (i *Issuer) ParseAccessToken(token string) (models.Claims, error) {
	var p accessPayload
	if err := i.parse(token, keys.AccessToken, jwt.SigningMethodHS256, &p, accessFields); err != nil {
		return models.Claims{}, err
	}
	return p.claims(), nil
}

// ParseRefreshToken verifies a refresh token and returns its claims and the
// record id it carries. It does not consult the store.
func (i *Issuer) ParseRefreshToken(token string) (models.Claims, string, error) {
	var p refreshPayload
	if err := i.parse(token, keys.RefreshToken, jwt.SigningMethodEdDSA, &p, refreshFields); err != nil {
		return models.Claims{}, "", err
	}
	if p.ID == "" {
		return models.Claims{}, "", fmt.Errorf("%w: empty record id", common.ErrInvalidToken)
	}
	return p.claims(), p.ID, nil
}

func (i *Issuer) parse(token string, class keys.TokenClass, method jwt.SigningMethod, dst jwt.Claims, fields []string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)

	_, err := parser.ParseWithClaims(token, dst, func(t *jwt.Token) (any, error) {
		if class == keys.RefreshToken && i.keyID != "" {
			if kid, ok := t.Header["kid"].(string); ok && kid != i.keyID {
				return nil, fmt.Errorf("unknown key id %q", kid)
			}
		}
		return i.keys.VerificationKey(class)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	segment, err := parser.DecodeSegment(strings.Split(token, ".")[1])
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if err := checkFieldSet(segment, fields); err != nil {
		return err
	}

	if v, ok := dst.(interface{ claims() models.Claims }); ok {
		if err := v.claims().Validate(); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
		}
	}
	return nil
}
