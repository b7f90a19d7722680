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

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTokenBlacklist_RevokeUntilExpiry(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	bl := NewTokenBlacklist(rdb)

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "jti-1", time.Now().Add(30*time.Minute)))

	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL("blacklist:jti-1")
	assert.True(t, ttl > 29*time.Minute && ttl <= 30*time.Minute, "ttl was %v", ttl)

	mr.FastForward(31 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenBlacklist_IgnoresExpiredCredential(t *testing.T) {
	mr, rdb := setupRedis(t)
	bl := NewTokenBlacklist(rdb)

	require.NoError(t, bl.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("blacklist:old"))
}

func TestTokenBlacklist_NilClient(t *testing.T) {
	bl := NewTokenBlacklist(nil)
	assert.NoError(t, bl.Revoke(context.Background(), "jti", time.Now().Add(time.Hour)))

	revoked, err := bl.IsRevoked(context.Background(), "jti")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
