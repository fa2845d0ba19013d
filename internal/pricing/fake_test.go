package pricing_test

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

// fakeProvider answers from a fixed price table.
type fakeProvider struct {
	kind         provider.Kind
	unconfigured bool
	prices       map[string]string
	err          error
	panicOn      string
	// gate, when set, blocks every Fetch until it is closed.
	gate chan struct{}

	calls atomic.Int32
}

func (f *fakeProvider) Kind() provider.Kind { return f.kind }

func (f *fakeProvider) Configured() bool { return !f.unconfigured }

func (f *fakeProvider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return provider.Quote{}, ctx.Err()
		}
	}
	if f.panicOn != "" && f.panicOn == t.Symbol {
		panic("boom")
	}
	if p, ok := f.prices[t.Symbol]; ok {
		return provider.Quote{Ticker: t.Symbol, Price: decimal.RequireFromString(p), Source: f.kind}, nil
	}
	if f.err != nil {
		return provider.Quote{}, &provider.Failure{Provider: f.kind, Reason: provider.ReasonTransport, Err: f.err}
	}
	return provider.Quote{}, provider.NotFound(f.kind, t.Symbol)
}
