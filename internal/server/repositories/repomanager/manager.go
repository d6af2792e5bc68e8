// Package repomanager builds the repositories for the configured store
// driver and runs schema migrations where the driver needs them.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/dbx"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/identities"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/refreshtokens"
	"github.com/redis/go-redis/v9"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// DB is the SQL handle used for transactions, nil for the memory driver.
	DB() *sql.DB
	Identities(db dbx.DBTX) identities.Repository
	RefreshTokens() refreshtokens.Repository
	Close() error
}

// Options select and configure the backing stores.
type Options struct {
	Driver          string
	DatabaseDSN     string
	RedisAddr       string
	RedisPrefix     string
	RefreshValidity time.Duration
}

var (
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		return sql.Open(driverName, dsn)
	}

	newRedisClient = func(addr string) *redis.Client {
		return redis.NewClient(&redis.Options{Addr: addr})
	}
)

// New opens the stores named by opts.Driver. Postgres backs identities for
// both the postgres and redis drivers; redis only holds refresh tokens.
func New(ctx context.Context, opts Options) (RepositoryManager, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryRepositoryManager(opts.RefreshValidity), nil

	case DriverPostgres, DriverRedis:
		db, err := openDB("pgx", opts.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}

		pg := NewPostgresRepositoryManager(db, opts.RefreshValidity)
		if opts.Driver == DriverPostgres {
			return pg, nil
		}

		rdb := newRedisClient(opts.RedisAddr)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = db.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisRepositoryManager(pg, rdb, opts.RedisPrefix), nil
	}

	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}
