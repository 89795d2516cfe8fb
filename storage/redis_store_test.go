package storage

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	store, err := NewRedisStore(RedisStoreConfig{
		Host:      mr.Host(),
		Port:      port,
		PoolSize:  2,
		KeyPrefix: "test:",
		TTL:       ttl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return mr, store
}

func TestRedisStore(t *testing.T) {
	_, store := setupTestRedis(t, 0)
	exerciseStore(t, store)
}

func TestRedisStore_Keys(t *testing.T) {
	mr, store := setupTestRedis(t, 0)

	loc, err := store.SaveReport(context.Background(), sampleReport("batch", olderTS))
	require.NoError(t, err)
	assert.Equal(t, "redis://test:report:data:batch", loc)

	assert.True(t, mr.Exists("test:report:data:batch"))
	members, err := mr.ZMembers("test:report:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"batch"}, members)
}

func TestRedisStore_ExpiredReportsArePruned(t *testing.T) {
	mr, store := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	_, err := store.SaveReport(ctx, sampleReport("short-lived", olderTS))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	list, err := store.ListReports(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	members, err := mr.ZMembers("test:report:index")
	if err == nil {
		assert.Empty(t, members)
	}

	_, err = store.GetReport(ctx, "short-lived")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	port, _ := strconv.Atoi(mr.Port())
	host := mr.Host()
	mr.Close()

	_, err = NewRedisStore(RedisStoreConfig{Host: host, Port: port})
	assert.Error(t, err)
}
