// Package refreshtokens stores the server-side records behind refresh
// tokens. A record is live from Create until it is deleted; deletion is the
// only way to revoke a refresh token.
package refreshtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/google/uuid"
)

// DefaultValidity is the lifetime given to new records.
const DefaultValidity = 365 * 24 * time.Hour

// Repository is implemented by every refresh token store backend.
type Repository interface {
	// Create allocates a new record id for ownerID, never reusing one, and
	// persists it with expiry now+validity.
	Create(ctx context.Context, ownerID string) (*models.RefreshTokenRecord, error)

	// DeleteByID removes the record. A missing id is not an error; deleted
	// reports whether this call removed it.
	DeleteByID(ctx context.Context, id string) (deleted bool, err error)

	// Find returns the record or common.ErrorNotFound.
	Find(ctx context.Context, id string) (*models.RefreshTokenRecord, error)

	// ListByOwner returns the unexpired records of ownerID, oldest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.RefreshTokenRecord, error)

	// DeleteExpired drops records that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// newRecord builds a record with a fresh random id.
func newRecord(ownerID string, now time.Time, validity time.Duration) *models.RefreshTokenRecord {
	now = now.UTC().Truncate(time.Microsecond)
	return &models.RefreshTokenRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ExpiresAt: now.Add(validity),
		CreatedAt: now,
	}
}

// validID reports whether id can name a record at all. Anything that is not
// a UUID was never issued.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func unavailable(kind string, err error) error {
	return fmt.Errorf("%s error: %w: %w", kind, common.ErrStoreUnavailable, err)
}

func validityOrDefault(v time.Duration) time.Duration {
	if v <= 0 {
		return DefaultValidity
	}
	return v
}
