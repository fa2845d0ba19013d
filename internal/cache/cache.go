// Package cache keeps the last successful quote per ticker for a short TTL.
package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"portfolioquotes/internal/provider"
)

// DefaultTTL is how long a cached quote is served without a network call.
const DefaultTTL = 60 * time.Second

// Entry is one cached quote.
type Entry struct {
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	Source    provider.Kind   `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Quote converts the entry back to the provider shape.
func (e Entry) Quote() provider.Quote {
	return provider.Quote{Ticker: e.Ticker, Price: e.Price, Source: e.Source}
}

// Store persists entries by normalized ticker. Get reports ok=false on a miss.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}

// Cache applies the freshness rule on top of a Store.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(store Store, log *zap.Logger, opts ...Option) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{store: store, ttl: DefaultTTL, now: time.Now, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Lookup returns the fresh entry for key. Store errors count as a miss.
func (c *Cache) Lookup(ctx context.Context, key string) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("ticker", key), zap.Error(err))
		return Entry{}, false
	}
	if !ok || c.now().Sub(e.FetchedAt) >= c.ttl {
		return Entry{}, false
	}
	return e, true
}

// Remember overwrites the entry for key with q, stamped now. A failed write is
// logged and otherwise ignored.
func (c *Cache) Remember(ctx context.Context, key string, q provider.Quote) Entry {
	e := Entry{Ticker: q.Ticker, Price: q.Price, Source: q.Source, FetchedAt: c.now()}
	if err := c.store.Set(ctx, key, e); err != nil {
		c.log.Warn("cache write failed", zap.String("ticker", key), zap.Error(err))
	}
	return e
}
