package models

import "time"

// RefreshTokenRecord is the server-side half of a refresh token. A record is
// live from creation until deleted; it is never updated.
type RefreshTokenRecord struct {
	ID        string
	OwnerID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r RefreshTokenRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
