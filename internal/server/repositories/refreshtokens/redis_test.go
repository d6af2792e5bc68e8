package refreshtokens

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T, validity time.Duration) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepository(rdb, "test", validity), mr
}

func TestRedisRepository_CreateFindDelete(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t, time.Hour)

	rec, err := repo.Create(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:rt:"+rec.ID))

	ttl := mr.TTL("test:rt:" + rec.ID)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	got, err := repo.Find(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.OwnerID, got.OwnerID)
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	deleted, err := repo.DeleteByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists("test:rt:"+rec.ID))

	members, err := mr.Members("test:rt-owner:u1")
	if err == nil {
		assert.NotContains(t, members, rec.ID)
	}

	deleted, err = repo.DeleteByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.Find(ctx, rec.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedisRepository_DeleteKeepsOwnerIndexInStep(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t, time.Hour)

	a, err := repo.Create(ctx, "u1")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "u1")
	require.NoError(t, err)

	members, err := mr.Members("test:rt-owner:u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, members)

	deleted, err := repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	members, err = mr.Members("test:rt-owner:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, members)
	assert.True(t, mr.Exists("test:rt:"+b.ID))
}

func TestRedisRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, time.Hour)

	a, err := repo.Create(ctx, "u1")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "u1")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "u2")
	require.NoError(t, err)

	list, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	empty, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisRepository_ExpiryDropsRecord(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t, time.Minute)

	rec, err := repo.Create(ctx, "u1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = repo.Find(ctx, rec.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	deleted, err := repo.DeleteByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisRepository_Unavailable(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t, time.Hour)
	mr.Close()

	_, err := repo.Create(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = repo.DeleteByID(ctx, recID)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = repo.Find(ctx, recID)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}
