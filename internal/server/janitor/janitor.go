// Package janitor periodically removes expired refresh-token records.
package janitor

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/logging"
)

// ExpiredDeleter is the part of the refresh token store the janitor needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

const DefaultInterval = time.Hour

var nowFunc = time.Now

// Run sweeps on every tick of interval until ctx is done. Sweep failures are
// logged and retried on the next tick. A non-positive interval means
// DefaultInterval.
func Run(ctx context.Context, store ExpiredDeleter, interval time.Duration, logger logging.Logger) error {
	logger = logger.With("module", "janitor")
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info(ctx, "Starting janitor", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Stopping janitor...")
			return nil
		case <-ticker.C:
			Sweep(ctx, store, logger)
		}
	}
}

// Sweep deletes records expired as of now and returns how many went.
func Sweep(ctx context.Context, store ExpiredDeleter, logger logging.Logger) int64 {
	n, err := store.DeleteExpired(ctx, nowFunc())
	if err != nil {
		logger.Error(ctx, "delete expired refresh tokens", "error", err)
		return 0
	}
	if n > 0 {
		logger.Info(ctx, "expired refresh tokens deleted", "count", n)
	}
	return n
}
