package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/identities"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/refreshtokens"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func stubOpenDB(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := openDB
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driverName)
		return db, err
	}
	t.Cleanup(func() { openDB = orig })
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := NewPostgresRepositoryManager(db, 0)

	assert.IsType(t, &identities.PostgresRepository{}, m.Identities(db))
	assert.IsType(t, &refreshtokens.PostgresRepository{}, m.RefreshTokens())
	assert.Same(t, db, m.DB())
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db, 0)
	require.NoError(t, m.RunMigrations(context.Background()))
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db, 0)
	err := m.RunMigrations(context.Background())
	require.EqualError(t, err, "boom")
}

func TestNew_Memory(t *testing.T) {
	m, err := New(context.Background(), Options{Driver: DriverMemory})
	require.NoError(t, err)

	assert.Nil(t, m.DB())
	assert.Same(t, m.RefreshTokens(), m.RefreshTokens(), "memory repos are shared")
	assert.Same(t, m.Identities(nil), m.Identities(nil))
	require.NoError(t, m.RunMigrations(context.Background()))
	require.NoError(t, m.Close())
}

func TestNew_Postgres(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectClose()
	stubOpenDB(t, db, nil)

	m, err := New(context.Background(), Options{Driver: DriverPostgres, DatabaseDSN: "postgres://x"})
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, m)
	require.NoError(t, m.Close())
}

func TestNew_PostgresOpenError(t *testing.T) {
	stubOpenDB(t, nil, errors.New("bad dsn"))

	_, err := New(context.Background(), Options{Driver: DriverPostgres})
	require.ErrorContains(t, err, "bad dsn")
}

func TestNew_Redis(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectClose()
	stubOpenDB(t, db, nil)

	mr := miniredis.RunT(t)
	orig := newRedisClient
	newRedisClient = func(addr string) *redis.Client {
		return redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}
	t.Cleanup(func() { newRedisClient = orig })

	m, err := New(context.Background(), Options{Driver: DriverRedis, RedisAddr: "ignored"})
	require.NoError(t, err)
	assert.IsType(t, &refreshtokens.RedisRepository{}, m.RefreshTokens())
	assert.IsType(t, &identities.PostgresRepository{}, m.Identities(m.DB()))
	require.NoError(t, m.Close())
}

func TestNew_RedisUnreachable(t *testing.T) {
	db, _ := newDB(t)
	stubOpenDB(t, db, nil)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	orig := newRedisClient
	newRedisClient = func(string) *redis.Client {
		return redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	}
	t.Cleanup(func() { newRedisClient = orig })

	_, err := New(context.Background(), Options{Driver: DriverRedis})
	require.ErrorContains(t, err, "ping redis")
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Options{Driver: "mongo"})
	require.ErrorContains(t, err, "unknown store driver")
}
