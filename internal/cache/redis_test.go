package cache

import (
	"context"
	"testing"
	"time"

	"bolify/internal/middleware"
	"bolify/internal/observability"

	"github.com/alicebob/miniredis/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandCount(t *testing.T, family, result string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, observability.RedisCommands.WithLabelValues(family, result).Write(&m))
	return m.GetCounter().GetValue()
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		rdb, err := Connect(context.Background(), addr)
		require.NoError(t, err, addr)
		assert.NoError(t, rdb.Ping(context.Background()).Err())
		require.NoError(t, rdb.Close())
	}
}

func TestConnect_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Connect(ctx, "")
	assert.Error(t, err)

	_, err = Connect(ctx, "redis://:bad@[::1")
	assert.ErrorContains(t, err, "invalid REDIS_URL")

	rdb, err := Connect(ctx, "redis://127.0.0.1:1")
	assert.Error(t, err)
	assert.Nil(t, rdb)
}

func TestConnect_CountsCommandsByKeyFamily(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	ctx := context.Background()
	rdb, err := Connect(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	revocation := commandCount(t, FamilyRevocation, "ok")
	rateLimit := commandCount(t, FamilyRateLimit, "ok")

	bl := NewTokenBlacklist(rdb)
	require.NoError(t, bl.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, rdb.Incr(ctx, middleware.RateLimitKeyPrefix+"blog_create:u1").Err())

	assert.Equal(t, revocation+2, commandCount(t, FamilyRevocation, "ok"))
	assert.Equal(t, rateLimit+1, commandCount(t, FamilyRateLimit, "ok"))

	// A miss is not an error.
	_, err = rdb.Get(ctx, blacklistPrefix+"missing").Result()
	require.Error(t, err)
	assert.Equal(t, revocation+3, commandCount(t, FamilyRevocation, "ok"))
	assert.Zero(t, commandCount(t, FamilyRevocation, "error"))
}
