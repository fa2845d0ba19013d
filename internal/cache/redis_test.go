package cache_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/cache"
	"portfolioquotes/internal/provider"
)

func TestRedis_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	// Arrange
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisWithClient(client, "", 30*time.Second)
	fetched := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := cache.Entry{Ticker: "PETR4.SA", Price: decimal.RequireFromString("38.42"), Source: provider.Brapi, FetchedAt: fetched}

	// Act
	require.NoError(t, store.Set(t.Context(), "PETR4.SA", in))
	out, ok, err := store.Get(t.Context(), "PETR4.SA")

	// Assert
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in.Ticker, out.Ticker)
	require.Equal(t, in.Source, out.Source)
	require.True(t, in.Price.Equal(out.Price))
	require.True(t, in.FetchedAt.Equal(out.FetchedAt))
	require.True(t, mr.Exists(cache.DefaultPrefix+"PETR4.SA"))
	require.Equal(t, 30*time.Second, mr.TTL(cache.DefaultPrefix+"PETR4.SA"))

	mr.FastForward(31 * time.Second)
	_, ok, err = store.Get(t.Context(), "PETR4.SA")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_Miss(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	store := cache.NewRedis(cache.RedisOptions{Addr: mr.Addr(), Prefix: "test:"})
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(t.Context()))
	_, ok, err := store.Get(t.Context(), "NOPE")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_CorruptValue(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("test:AAPL", "not-json"))
	store := cache.NewRedis(cache.RedisOptions{Addr: mr.Addr(), Prefix: "test:"})
	t.Cleanup(func() { _ = store.Close() })

	_, ok, err := store.Get(t.Context(), "AAPL")
	require.Error(t, err)
	require.False(t, ok)
}
