// Package models defines server-side data models shared by the session
// components and their stores.
package models

import "time"

// Role is the authorization level of an identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCustomer:
		return true
	}
	return false
}

// Identity is an account as seen by the session layer.
type Identity struct {
	ID        string
	Role      Role
	TenantID  *string
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

// IdentityWithCredential pairs an identity with its stored password hash.
// Only the login path ever sees the hash.
type IdentityWithCredential struct {
	Identity     Identity
	PasswordHash string
}

// NewIdentity carries the fields needed to create an identity.
type NewIdentity struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	TenantID     *string
}

// IdentityFields is caller input for creating an identity. Password is
// plaintext and never stored.
type IdentityFields struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	TenantID  *string
}
