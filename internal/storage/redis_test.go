package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStorage instance
func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	s := NewRedisStorage(client, ttl)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return s, mr, cleanup
}

func TestRedisLoad_Success(t *testing.T) {
	s, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	require.NoError(t, mr.Set("cart:visitor-1", `{"version":1,"lines":[]}`))

	data, err := s.Load(context.Background(), "cart:visitor-1")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"lines":[]}`, string(data))
}

func TestRedisLoad_NotFound(t *testing.T) {
	s, _, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	data, err := s.Load(context.Background(), "cart:missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, data)
}

func TestRedisSave_NoTTL(t *testing.T) {
	s, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	require.NoError(t, s.Save(context.Background(), "cart:visitor-2", []byte("payload")))

	got, err := mr.Get("cart:visitor-2")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.Equal(t, time.Duration(0), mr.TTL("cart:visitor-2"))
}

func TestRedisSave_WithTTL(t *testing.T) {
	s, mr, cleanup := setupTestRedis(t, 15*time.Minute)
	defer cleanup()

	require.NoError(t, s.Save(context.Background(), "cart:visitor-3", []byte("payload")))

	ttl := mr.TTL("cart:visitor-3")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	mr.FastForward(21 * time.Minute)
	_, err := s.Load(context.Background(), "cart:visitor-3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSave_Overwrites(t *testing.T) {
	s, _, cleanup := setupTestRedis(t, 0)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("first")))
	require.NoError(t, s.Save(ctx, "k", []byte("second")))

	data, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestRedisDelete(t *testing.T) {
	s, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	require.NoError(t, mr.Set("cart:visitor-4", "x"))
	require.NoError(t, s.Delete(context.Background(), "cart:visitor-4"))
	assert.False(t, mr.Exists("cart:visitor-4"))
}

func TestRedis_ServerDown(t *testing.T) {
	s, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()
	mr.Close()

	_, err := s.Load(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")

	err = s.Save(context.Background(), "k", []byte("x"))
	assert.ErrorContains(t, err, "redis set failed")
}
