package cache

import (
	"context"
	"fmt"

	"portfolioquotes/internal/config"
)

// Open builds the configured Store. The returned close function releases the
// backend's connections.
func Open(ctx context.Context, cfg config.Cache) (Store, func() error, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		r := NewRedis(RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      DefaultTTL,
		})
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		return r, r.Close, nil
	case config.CacheMemory, "":
		return NewMemory(cfg.MaxItems), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
