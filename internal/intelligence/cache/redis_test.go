// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rc, err := NewRedisCache(context.Background(), RedisOptions{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	_, err := rc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	intent := types.NewIntent(types.IntentPriceInquiry, 0.8)
	intent.Entities = []types.Entity{{Type: "service", Value: "manicure", Confidence: 0.8}}
	intent.Context.EngineConsensus = 2
	require.NoError(t, rc.Set(ctx, "k", intent, time.Minute))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"k"))

	got, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, intent.Type, got.Type)
	assert.Equal(t, intent.Entities, got.Entities)
	assert.Equal(t, 2, got.Context.EngineConsensus)
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	require.NoError(t, rc.Set(ctx, "k", types.NewIntent(types.IntentOther, 0.3), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := rc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	removed, err := rc.EvictExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestRedisCache_ClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	require.NoError(t, mr.Set("other:key", "keep"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, rc.Set(ctx, k, types.NewIntent(types.IntentOther, 0), time.Minute))
	}
	n, err := rc.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, rc.Clear(ctx))
	n, _ = rc.Len(ctx)
	assert.Equal(t, 0, n)
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_CorruptValue(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"k", "not json"))

	_, err := rc.Get(ctx, "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisCache_PingFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisCache(context.Background(), RedisOptions{Address: addr})
	assert.Error(t, err)
}

func TestNewRedisCacheFromClient_CustomPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rc := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "t1:")
	defer rc.Close()
	require.NoError(t, rc.Set(context.Background(), "k", types.NewIntent(types.IntentOther, 0), time.Minute))
	assert.True(t, mr.Exists("t1:k"))
}

var _ Store = (*RedisCache)(nil)
var _ Store = (*MemoryCache)(nil)
