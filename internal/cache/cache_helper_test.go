package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, prefix string) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, prefix), server
}

func TestCacheHelper_SetAndGet(t *testing.T) {
	helper, _ := newTestCache(t, "session:")
	ctx := context.Background()

	type payload struct {
		Code  string `json:"code"`
		Score int    `json:"score"`
	}

	require.NoError(t, helper.Set(ctx, "code:abc", payload{Code: "abc", Score: 7}, time.Minute))

	var got payload
	require.NoError(t, helper.Get(ctx, "code:abc", &got))
	assert.Equal(t, "abc", got.Code)
	assert.Equal(t, 7, got.Score)
}

func TestCacheHelper_GetMissingKey(t *testing.T) {
	helper, _ := newTestCache(t, "session:")

	var got map[string]interface{}
	err := helper.Get(context.Background(), "nope", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheHelper_KeyPrefix(t *testing.T) {
	helper, server := newTestCache(t, "quiz:")
	ctx := context.Background()

	require.NoError(t, helper.SetString(ctx, "slug:math", "1", time.Minute))
	assert.True(t, server.Exists("quiz:slug:math"))
}

func TestCacheHelper_Expiry(t *testing.T) {
	helper, server := newTestCache(t, "fast:")
	ctx := context.Background()

	require.NoError(t, helper.SetString(ctx, "k", "v", time.Minute))
	server.FastForward(2 * time.Minute)

	_, err := helper.GetString(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, _ := newTestCache(t, "session:")
	ctx := context.Background()

	require.NoError(t, helper.SetString(ctx, "a", "1", time.Minute))
	require.NoError(t, helper.SetString(ctx, "b", "2", time.Minute))
	require.NoError(t, helper.Delete(ctx, "a", "b"))

	exists, err := helper.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "session:")
	ctx := context.Background()

	assert.NoError(t, helper.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, helper.Delete(ctx, "k"))

	var got string
	assert.ErrorIs(t, helper.Get(ctx, "k", &got), ErrCacheNotAvailable)
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, _ := newTestCache(t, "leaderboard:")
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"total": 25}, nil
	}

	var got map[string]int
	require.NoError(t, helper.CacheOrExecute(ctx, "quiz:1", &got, time.Minute, fetch))
	assert.Equal(t, 25, got["total"])
	assert.Equal(t, 1, calls)

	// The async cache write may not have landed yet, so poll briefly before
	// asserting the second read is served from cache.
	deadline := time.Now().Add(time.Second)
	for {
		if ok, _ := helper.Exists(ctx, "quiz:1"); ok || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var again map[string]int
	require.NoError(t, helper.CacheOrExecute(ctx, "quiz:1", &again, time.Minute, fetch))
	assert.Equal(t, 25, again["total"])
	assert.Equal(t, 1, calls, "second read should come from cache")
}

func TestCacheManager_InvalidateLeaderboard(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	manager := NewCacheManager(client)
	ctx := context.Background()

	require.NoError(t, manager.Leaderboard.SetString(ctx, "quiz:1:page:1", "cached", time.Minute))
	require.NoError(t, manager.Leaderboard.SetString(ctx, "quiz:2:page:1", "cached", time.Minute))

	require.NoError(t, manager.InvalidateLeaderboard(ctx, 1))

	assert.False(t, server.Exists("leaderboard:quiz:1:page:1"))
	assert.True(t, server.Exists("leaderboard:quiz:2:page:1"))
}
