package refreshtokens

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	fieldOwner     = "owner_id"
	fieldExpiresAt = "expires_at"
	fieldCreatedAt = "created_at"
)

// deleteRecordScript removes a record hash and its owner index entry in one
// step, returning 1 only if the hash existed.
const deleteRecordScript = `
local owner = redis.call("HGET", KEYS[1], "owner_id")
if not owner then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. owner, ARGV[2])
return 1
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// RedisRepository keeps one hash per record, expiring with the record, plus a
// per-owner set of record ids. Expiry is left to Redis. The delete script and
// the create transaction touch keys in different hash slots, so only a
// single-node client is accepted.
type RedisRepository struct {
	rdb      *redis.Client
	prefix   string
	validity time.Duration
	now      func() time.Time
}

// NewRedisRepository stores keys under prefix (e.g. "gophsession").
func NewRedisRepository(rdb *redis.Client, prefix string, validity time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, prefix: prefix, validity: validityOrDefault(validity), now: time.Now}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + ":rt:" + id
}

func (r *RedisRepository) ownerPrefix() string {
	return r.prefix + ":rt-owner:"
}

func (r *RedisRepository) ownerKey(ownerID string) string {
	return r.ownerPrefix() + ownerID
}

func (r *RedisRepository) Create(ctx context.Context, ownerID string) (*models.RefreshTokenRecord, error) {
	rec := newRecord(ownerID, r.now(), r.validity)

	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.key(rec.ID),
			fieldOwner, rec.OwnerID,
			fieldExpiresAt, rec.ExpiresAt.UnixMicro(),
			fieldCreatedAt, rec.CreatedAt.UnixMicro(),
		)
		p.PExpireAt(ctx, r.key(rec.ID), rec.ExpiresAt)
		p.SAdd(ctx, r.ownerKey(ownerID), rec.ID)
		p.PExpireAt(ctx, r.ownerKey(ownerID), rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return nil, unavailable("redis", err)
	}
	return rec, nil
}

func (r *RedisRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	n, err := deleteRecordLua.Run(ctx, r.rdb, []string{r.key(id)}, r.ownerPrefix(), id).Int64()
	if err != nil {
		return false, unavailable("redis", err)
	}
	return n == 1, nil
}

func (r *RedisRepository) Find(ctx context.Context, id string) (*models.RefreshTokenRecord, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, unavailable("redis", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}
	return decodeRecord(id, fields)
}

func (r *RedisRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.RefreshTokenRecord, error) {
	ids, err := r.rdb.SMembers(ctx, r.ownerKey(ownerID)).Result()
	if err != nil {
		return nil, unavailable("redis", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, r.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("redis", err)
	}

	now := r.now()
	var (
		out   []models.RefreshTokenRecord
		stale []any
	)
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		rec, err := decodeRecord(ids[i], fields)
		if err != nil {
			return nil, err
		}
		if !rec.Expired(now) {
			out = append(out, *rec)
		}
	}

	if len(stale) > 0 {
		if err := r.rdb.SRem(ctx, r.ownerKey(ownerID), stale...).Err(); err != nil {
			return nil, unavailable("redis", err)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteExpired is a no-op: record keys carry their own TTL.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func decodeRecord(id string, fields map[string]string) (*models.RefreshTokenRecord, error) {
	expires, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, unavailable("redis", err)
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, unavailable("redis", err)
	}
	return &models.RefreshTokenRecord{
		ID:        id,
		OwnerID:   fields[fieldOwner],
		ExpiresAt: time.UnixMicro(expires).UTC(),
		CreatedAt: time.UnixMicro(created).UTC(),
	}, nil
}
