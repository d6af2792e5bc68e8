// Package identities stores accounts and their password hashes.
package identities

import (
	"context"

	"github.com/dmitrijs2005/gophsession/internal/server/models"
)

// Repository persists identities. Emails are stored as given; callers
// normalize them before Create and lookups.
type Repository interface {
	// Create inserts a new identity, returning common.ErrDuplicateEmail
	// when the email is taken.
	Create(ctx context.Context, in models.NewIdentity) (*models.Identity, error)
	// FindByEmail returns the identity with its password hash, or
	// common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.IdentityWithCredential, error)
	// FindByID returns the identity or common.ErrorNotFound.
	FindByID(ctx context.Context, id string) (*models.Identity, error)
}
