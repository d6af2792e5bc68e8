package tokens

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// accessPayload is the exact claim set of an access token.
type accessPayload struct {
	Subject   string           `json:"sub"`
	Role      models.Role      `json:"role"`
	Tenant    string           `json:"tenant"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Email     string           `json:"email"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Issuer    string           `json:"iss"`
}

// refreshPayload adds the record id to the access claim set.
type refreshPayload struct {
	accessPayload
	ID string `json:"id"`
}

var (
	accessFields  = []string{"sub", "role", "tenant", "firstName", "lastName", "email", "iat", "exp", "iss"}
	refreshFields = append(append([]string(nil), accessFields...), "id")
)

func (p accessPayload) GetExpirationTime() (*jwt.NumericDate, error) { return p.ExpiresAt, nil }
func (p accessPayload) GetIssuedAt() (*jwt.NumericDate, error)       { return p.IssuedAt, nil }
func (p accessPayload) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (p accessPayload) GetIssuer() (string, error)                   { return p.Issuer, nil }
func (p accessPayload) GetSubject() (string, error)                  { return p.Subject, nil }
func (p accessPayload) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func (p accessPayload) claims() models.Claims {
	return models.Claims{
		Subject:   p.Subject,
		Role:      p.Role,
		Tenant:    p.Tenant,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	}
}

func newAccessPayload(c models.Claims, issuer string, iat, exp *jwt.NumericDate) accessPayload {
	return accessPayload{
		Subject:   c.Subject,
		Role:      c.Role,
		Tenant:    c.Tenant,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		IssuedAt:  iat,
		ExpiresAt: exp,
		Issuer:    issuer,
	}
}

// checkFieldSet rejects a payload whose claim names differ from want in
// either direction.
func checkFieldSet(segment []byte, want []string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(segment, &raw); err != nil {
		return fmt.Errorf("%w: payload: %v", common.ErrInvalidToken, err)
	}

	allowed := make(map[string]struct{}, len(want))
	for _, name := range want {
		allowed[name] = struct{}{}
		if _, ok := raw[name]; !ok {
			return fmt.Errorf("%w: missing claim %q", common.ErrInvalidToken, name)
		}
	}
	for name := range raw {
		if _, ok := allowed[name]; !ok {
			return fmt.Errorf("%w: unexpected claim %q", common.ErrInvalidToken, name)
		}
	}
	return nil
}
