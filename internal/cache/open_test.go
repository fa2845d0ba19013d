package cache_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/cache"
	"portfolioquotes/internal/config"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	store, closeFn, err := cache.Open(t.Context(), config.Cache{Backend: config.CacheMemory, MaxItems: 10})
	require.NoError(t, err)
	require.IsType(t, &cache.Memory{}, store)
	require.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	store, closeFn, err = cache.Open(t.Context(), config.Cache{Backend: config.CacheRedis, Redis: config.Redis{Addr: mr.Addr()}})
	require.NoError(t, err)
	require.IsType(t, &cache.Redis{}, store)
	require.NoError(t, closeFn())

	_, _, err = cache.Open(t.Context(), config.Cache{Backend: "memcached"})
	require.ErrorContains(t, err, "memcached")
}
