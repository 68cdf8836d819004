package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(RedisConfig{
		Address:   mr.Addr(),
		KeyPrefix: prefix,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, mr
}

func TestRedisStoreGet(t *testing.T) {
	s, mr := setupTestRedis(t, "")
	ctx := context.Background()

	require.NoError(t, mr.Set("routing-api", "{'weight': 60, 'blue': 'v1', 'green': 'v2'}"))

	value, exists, err := s.Get(ctx, "routing-api")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "{'weight': 60, 'blue': 'v1', 'green': 'v2'}", value)

	_, exists, err = s.Get(ctx, "routing-app")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStorePutUsesPrefix(t *testing.T) {
	s, mr := setupTestRedis(t, "edge:")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "routing-app", "{'weight': 0}"))

	raw, err := mr.Get("edge:routing-app")
	require.NoError(t, err)
	assert.Equal(t, "{'weight': 0}", raw)

	value, exists, err := s.Get(ctx, "routing-app")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "{'weight': 0}", value)
	assert.NoError(t, s.Ping(ctx))
}

func TestRedisStoreGetFailsWhenServerDown(t *testing.T) {
	s, mr := setupTestRedis(t, "")
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _, err := s.Get(ctx, "routing-api")
	assert.Error(t, err)
}

func TestNewRedisStoreFailsWithoutServer(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{
		Address:     "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
}
