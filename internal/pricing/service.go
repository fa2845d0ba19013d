// Package pricing resolves tickers to prices across the provider chains.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"portfolioquotes/internal/aggregate"
	"portfolioquotes/internal/cache"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

// Result is one batch slot. A zero Price with a non-empty Error means the
// ticker could not be priced.
type Result struct {
	Price  decimal.Decimal `json:"price"`
	Source string          `json:"source"`
	Error  string          `json:"error"`
}

type Service struct {
	chains         Chains
	cache          *cache.Cache
	log            *zap.Logger
	maxConcurrency int

	flight singleflight.Group
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxConcurrency caps simultaneous lookups inside one batch.
func WithMaxConcurrency(n int) Option {
	return func(s *Service) { s.maxConcurrency = n }
}

// New returns a service over chains. A nil cache gets an unbounded in-memory
// one with the default TTL.
func New(chains Chains, c *cache.Cache, opts ...Option) *Service {
	s := &Service{chains: chains, cache: c, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New(cache.NewMemory(0), s.log)
	}
	return s
}

// GetPrice returns one price for raw, from the cache when fresh, otherwise
// from the first provider in the category's chain that answers with a
// positive price. Concurrent misses for the same ticker share one walk.
func (s *Service) GetPrice(ctx context.Context, raw string) (provider.Quote, error) {
	t := ticker.Parse(raw)
	if t.Category == ticker.Unknown {
		return provider.Quote{}, &NoPriceError{Ticker: raw, Category: ticker.Unknown}
	}
	if e, ok := s.cache.Lookup(ctx, t.Symbol); ok {
		return e.Quote(), nil
	}

	// The walk is detached so one caller giving up does not fail the others
	// waiting on it; provider timeouts still bound it.
	ch := s.flight.DoChan(t.Symbol, func() (v any, err error) {
		// singleflight re-panics on a fresh goroutine, beyond any caller's recover.
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("lookup panicked", zap.String("ticker", t.Symbol), zap.Any("panic", rec))
				err = fmt.Errorf("internal error: %v", rec)
			}
		}()
		return s.resolve(context.WithoutCancel(ctx), t)
	})
	select {
	case <-ctx.Done():
		return provider.Quote{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return provider.Quote{}, r.Err
		}
		return r.Val.(provider.Quote), nil
	}
}

func (s *Service) resolve(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	// A flight that finished just before this one may have filled the entry.
	if e, ok := s.cache.Lookup(ctx, t.Symbol); ok {
		return e.Quote(), nil
	}
	q, err := s.walk(ctx, t)
	if err != nil {
		s.log.Warn("no price", zap.String("ticker", t.Symbol), zap.Stringer("category", t.Category), zap.Error(err))
		return provider.Quote{}, err
	}
	s.cache.Remember(ctx, t.Symbol, q)
	return q, nil
}

func (s *Service) walk(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	var failures []error
	for _, p := range s.chains[t.Category] {
		if !p.Configured() {
			continue
		}
		q, err := fetch(ctx, p, t)
		if err == nil {
			return q, nil
		}
		s.log.Debug("provider failed",
			zap.String("ticker", t.Symbol),
			zap.String("provider", string(p.Kind())),
			zap.Error(err))
		failures = append(failures, err)
	}
	return provider.Quote{}, &NoPriceError{Ticker: t.Symbol, Category: t.Category, Failures: failures}
}

// fetch calls p and treats a non-positive price as not found. A panicking
// provider counts as a transport failure.
func fetch(ctx context.Context, p provider.Provider, t ticker.Ticker) (q provider.Quote, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			q, err = provider.Quote{}, provider.Transport(p.Kind(), fmt.Errorf("panic: %v", rec))
		}
	}()
	q, err = p.Fetch(ctx, t)
	if err != nil {
		return provider.Quote{}, err
	}
	if !q.Price.IsPositive() {
		return provider.Quote{}, provider.NotFound(p.Kind(), t.Symbol)
	}
	if q.Source == "" {
		q.Source = p.Kind()
	}
	if q.Ticker == "" {
		q.Ticker = t.Symbol
	}
	return q, nil
}

// GetPricesBatch prices every distinct ticker concurrently. The result is
// keyed by the tickers as supplied; a failure or panic in one lookup only
// fills that ticker's slot.
func (s *Service) GetPricesBatch(ctx context.Context, tickers []string) map[string]Result {
	batchID := uuid.NewString()
	started := time.Now()
	out := make(map[string]Result, len(tickers))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	seen := make(map[string]struct{}, len(tickers))
	for _, raw := range tickers {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		g.Go(func() error {
			r := s.lookup(ctx, raw)
			mu.Lock()
			out[raw] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range out {
		if r.Error != "" {
			failed++
		}
	}
	s.log.Info("batch priced",
		zap.String("batch_id", batchID),
		zap.Int("tickers", len(out)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(started)))
	return out
}

func (s *Service) lookup(ctx context.Context, raw string) (r Result) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("lookup panicked", zap.String("ticker", raw), zap.Any("panic", rec))
			r = Result{Price: decimal.Zero, Error: fmt.Sprintf("internal error: %v", rec)}
		}
	}()
	q, err := s.GetPrice(ctx, raw)
	if err != nil {
		return Result{Price: decimal.Zero, Error: err.Error()}
	}
	return Result{Price: q.Price, Source: string(q.Source)}
}

// GetPriceConsensus queries every configured provider of the category at once
// and reduces the answers to their median. It neither reads nor fills the
// cache.
func (s *Service) GetPriceConsensus(ctx context.Context, raw string) aggregate.Consensus {
	t := ticker.Parse(raw)
	if t.Category == ticker.Unknown {
		return aggregate.Aggregate(nil, t.Category)
	}
	quotes := s.Candidates(ctx, t)
	return aggregate.Aggregate(quotes, t.Category)
}

// Candidates collects the positive quotes of every configured provider for t.
// Failures are logged and dropped.
func (s *Service) Candidates(ctx context.Context, t ticker.Ticker) []provider.Quote {
	chain := s.chains[t.Category]
	slots := make([]*provider.Quote, len(chain))

	var g errgroup.Group
	for i, p := range chain {
		if !p.Configured() {
			continue
		}
		g.Go(func() error {
			q, err := fetch(ctx, p, t)
			if err != nil {
				s.log.Debug("consensus candidate failed",
					zap.String("ticker", t.Symbol),
					zap.String("provider", string(p.Kind())),
					zap.Error(err))
				return nil
			}
			slots[i] = &q
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]provider.Quote, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}
