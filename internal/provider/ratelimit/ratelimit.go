package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

// ErrLimited reports a call refused at the gate because the next free slot
// is further away than the gate's MaxWait.
var ErrLimited = errors.New("rate limited")

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent callers queue on the gate for at most MaxWait; a canceled
// context releases the waiter without calling the upstream.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration
	// MaxWait is the longest a caller waits for a slot. Zero means a call
	// either proceeds at once or fails with ErrLimited.
	MaxWait time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Kind() provider.Kind { return m.P.Kind() }

func (m *MinInterval) Configured() bool { return m.P.Configured() }

func (m *MinInterval) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	if m.Interval > 0 {
		if err := m.reserve(ctx); err != nil {
			return provider.Quote{}, gateError(m.P.Kind(), err)
		}
	}
	return m.P.Fetch(ctx, t)
}

// reserve claims the next free slot and sleeps until it arrives. A slot
// beyond MaxWait is not claimed.
func (m *MinInterval) reserve(ctx context.Context) error {
	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	wait := slot.Sub(now)
	if wait > m.MaxWait {
		m.mu.Unlock()
		return ErrLimited
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	return sleep(ctx, wait)
}

func sleep(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// gateError reports a wait that ended before the upstream was called.
func gateError(k provider.Kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.Failure{Provider: k, Reason: provider.ReasonTimeout, Err: err}
	}
	return provider.Transport(k, err)
}
