package pricing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/cache"
	"portfolioquotes/internal/pricing"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

func TestGetPriceConsensus_US_QueriesWholeChain(t *testing.T) {
	t.Parallel()

	// Arrange
	finnhub := &fakeProvider{kind: provider.Finnhub, prices: map[string]string{"AAPL": "100"}}
	alpha := &fakeProvider{kind: provider.AlphaVantage, unconfigured: true}
	fmp := &fakeProvider{kind: provider.FMP, err: errors.New("unauthorized")}
	stooq := &fakeProvider{kind: provider.Stooq, prices: map[string]string{"AAPL": "100.05"}}
	yahoo := &fakeProvider{kind: provider.YahooQuote, prices: map[string]string{"AAPL": "100.02"}}
	store := cache.NewMemory(0)
	svc := pricing.New(pricing.Chains{ticker.USEquity: {finnhub, alpha, fmp, stooq, yahoo}}, cache.New(store, nil))

	// Act
	got := svc.GetPriceConsensus(t.Context(), "AAPL")

	// Assert
	require.True(t, decimal.RequireFromString("100.02").Equal(got.Price), "price %s", got.Price)
	require.Equal(t, "Finnhub,Stooq,YahooQuote", got.Sources)
	require.False(t, got.Diverged)
	require.Zero(t, alpha.calls.Load())
	require.Equal(t, int32(1), fmp.calls.Load())
	require.Equal(t, int32(1), yahoo.calls.Load())
	require.Zero(t, store.Len(), "consensus must not fill the cache")
}

func TestGetPriceConsensus_CryptoDivergence(t *testing.T) {
	t.Parallel()

	svc := pricing.New(pricing.Chains{ticker.Crypto: {
		&fakeProvider{kind: provider.CoinGecko, prices: map[string]string{"BTC-USD": "50000"}},
		&fakeProvider{kind: provider.CoinCap, prices: map[string]string{"BTC-USD": "51000"}},
	}}, nil)

	got := svc.GetPriceConsensus(t.Context(), "btcusd")
	require.True(t, decimal.NewFromInt(50500).Equal(got.Price))
	require.Equal(t, "CoinCap,CoinGecko", got.Sources)
	require.True(t, got.Diverged)
}

func TestGetPriceConsensus_NoQuotes(t *testing.T) {
	t.Parallel()

	svc := pricing.New(pricing.Chains{ticker.BREquity: {&fakeProvider{kind: provider.Brapi}}}, nil)

	for _, raw := range []string{"XXXX3.SA", "", "ABCDEFGHIJKLMNOPQRSTUVWXYZ"} {
		got := svc.GetPriceConsensus(t.Context(), raw)
		require.True(t, got.Price.IsZero(), raw)
		require.Empty(t, got.Sources, raw)
		require.True(t, got.Diverged, raw)
	}
}

func TestGetPriceConsensus_IgnoresCache(t *testing.T) {
	t.Parallel()

	stooq := &fakeProvider{kind: provider.Stooq, prices: map[string]string{"AAPL": "189"}}
	svc := pricing.New(pricing.Chains{ticker.USEquity: {stooq}}, nil)

	_, err := svc.GetPrice(t.Context(), "AAPL")
	require.NoError(t, err)
	svc.GetPriceConsensus(t.Context(), "AAPL")

	require.Equal(t, int32(2), stooq.calls.Load())
}
