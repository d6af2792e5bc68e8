package repomanager

import (
	"errors"

	"github.com/dmitrijs2005/gophsession/internal/server/repositories/refreshtokens"
	"github.com/redis/go-redis/v9"
)

// RedisRepositoryManager keeps identities in Postgres and refresh token
// records in Redis.
type RedisRepositoryManager struct {
	*PostgresRepositoryManager
	rdb    *redis.Client
	prefix string
}

func NewRedisRepositoryManager(pg *PostgresRepositoryManager, rdb *redis.Client, prefix string) *RedisRepositoryManager {
	if prefix == "" {
		prefix = "gophsession"
	}
	return &RedisRepositoryManager{PostgresRepositoryManager: pg, rdb: rdb, prefix: prefix}
}

func (m *RedisRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewRedisRepository(m.rdb, m.prefix, m.refreshValidity)
}

func (m *RedisRepositoryManager) Close() error {
	return errors.Join(m.rdb.Close(), m.PostgresRepositoryManager.Close())
}
