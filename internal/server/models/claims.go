package models

import (
	"github.com/dmitrijs2005/gophsession/internal/common"
)

// Claims is the identity snapshot embedded in access and refresh tokens.
// It does not follow later changes to the identity.
type Claims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	Tenant    string `json:"tenant"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// ClaimsFromIdentity builds claims for id. A missing tenant becomes "".
func ClaimsFromIdentity(id Identity) Claims {
	var tenant string
	if id.TenantID != nil {
		tenant = *id.TenantID
	}
	return Claims{
		Subject:   id.ID,
		Role:      id.Role,
		Tenant:    tenant,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Email:     id.Email,
	}
}

// Validate checks the required fields.
func (c Claims) Validate() error {
	if c.Subject == "" {
		return common.NewValidationError("sub", "is required")
	}
	if !c.Role.Valid() {
		return common.NewValidationError("role", "is not a known role")
	}
	if c.Email == "" {
		return common.NewValidationError("email", "is required")
	}
	return nil
}
