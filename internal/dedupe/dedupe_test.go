package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T, ttl time.Duration) (*Guard, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ttl), mr
}

func TestGuard_Claim(t *testing.T) {
	g, mr := newGuard(t, time.Hour)
	ctx := context.Background()

	ok, err := g.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "first claim")

	ok, err = g.Claim(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "second claim")

	assert.Equal(t, time.Hour, mr.TTL("uzpass:submission:k"))

	mr.FastForward(time.Hour + time.Second)
	ok, err = g.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "claim after expiry")
}

func TestGuard_Release(t *testing.T) {
	g, _ := newGuard(t, 0)
	ctx := context.Background()

	_, err := g.Claim(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, g.Release(ctx, "k"))

	ok, err := g.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuard_RedisDown(t *testing.T) {
	g, mr := newGuard(t, time.Hour)
	mr.Close()

	_, err := g.Claim(context.Background(), "k")
	assert.Error(t, err)
}

func TestGuard_Nil(t *testing.T) {
	var g *Guard
	ok, err := g.Claim(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, g.Release(context.Background(), "k"))
}

func TestNew_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, New(nil, 0).ttl)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "42:file:AgADxyz", FileKey(42, "AgADxyz"))

	a := TextKey(42, "ticket")
	assert.Equal(t, a, TextKey(42, "ticket"))
	assert.NotEqual(t, a, TextKey(43, "ticket"))
	assert.NotEqual(t, a, TextKey(42, "ticket2"))
	assert.Len(t, a, len("42:text:")+64)
}
