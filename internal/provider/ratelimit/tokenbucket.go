package ratelimit

import (
	"context"
	"sync"
	"time"

	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

// TokenBucket is a token bucket limiter.
//   - rate: tokens per second
//   - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst), // start full to allow an initial burst
		last:     time.Now(),
	}
}

// PerMinute builds a bucket from a requests-per-minute budget.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60, burst)
}

// Reserve takes one token, borrowing against future refills when the bucket
// is empty, and returns how long the caller must wait before using it. When
// that wait would exceed maxWait nothing is taken and ok is false.
func (tb *TokenBucket) Reserve(maxWait time.Duration) (wait time.Duration, ok bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now
	}
	if tb.tokens < 1 {
		wait = time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		if wait > maxWait {
			return 0, false
		}
	}
	tb.tokens--
	return wait, true
}

// TokenBucketProvider wraps a Provider and gates calls using a token bucket.
type TokenBucketProvider struct {
	P  provider.Provider
	TB *TokenBucket
	// MaxWait is the longest a caller waits for a token. Zero means a call
	// either proceeds at once or fails with ErrLimited.
	MaxWait time.Duration
}

func (t *TokenBucketProvider) Kind() provider.Kind { return t.P.Kind() }

func (t *TokenBucketProvider) Configured() bool { return t.P.Configured() }

func (t *TokenBucketProvider) Fetch(ctx context.Context, tk ticker.Ticker) (provider.Quote, error) {
	if t.TB != nil {
		wait, ok := t.TB.Reserve(t.MaxWait)
		if !ok {
			return provider.Quote{}, gateError(t.P.Kind(), ErrLimited)
		}
		if err := sleep(ctx, wait); err != nil {
			return provider.Quote{}, gateError(t.P.Kind(), err)
		}
	}
	return t.P.Fetch(ctx, tk)
}

// Wrap applies the configured limits to p. Zero limits leave p ungated;
// maxWait bounds how long a call may queue at either gate.
func Wrap(p provider.Provider, rpm, burst int, minInterval, maxWait time.Duration) provider.Provider {
	if rpm > 0 {
		p = &TokenBucketProvider{P: p, TB: PerMinute(rpm, burst), MaxWait: maxWait}
	}
	if minInterval > 0 {
		p = &MinInterval{P: p, Interval: minInterval, MaxWait: maxWait}
	}
	return p
}
