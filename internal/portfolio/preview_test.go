package portfolio_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/aggregate"
	"portfolioquotes/internal/portfolio"
)

func TestConsolidatePositions(t *testing.T) {
	t.Parallel()

	// Arrange: the same holdings split across statement lines and spellings
	positions := []portfolio.Position{
		{Ticker: "aapl", Name: "Apple Inc", Quantity: d("10")},
		{Ticker: "BTCUSD", Name: "Bitcoin", Quantity: d("0.5")},
		{Ticker: " AAPL ", Name: "APPLE", Quantity: d("2.5")},
		{Ticker: "btc-usd", Quantity: d("0.25")},
		{Ticker: "  ", Name: "noise", Quantity: d("1")},
		{Ticker: "USD", Name: "cash", Quantity: d("100")},
	}

	// Act
	got := portfolio.ConsolidatePositions(positions)

	// Assert
	require.Len(t, got, 3)
	require.Equal(t, "AAPL", got[0].Ticker)
	require.Equal(t, "Apple Inc", got[0].Name)
	require.True(t, d("12.5").Equal(got[0].Quantity))
	require.Equal(t, "BTC-USD", got[1].Ticker)
	require.True(t, d("0.75").Equal(got[1].Quantity))
	require.Equal(t, "USD", got[2].Ticker)
}

func TestPreviewImport(t *testing.T) {
	t.Parallel()

	// Arrange
	prices := fakeConsensus{
		"AAPL":    {Price: d("200"), Sources: "Finnhub,Stooq"},
		"BTC-USD": {Price: d("64000"), Sources: "CoinCap,CoinGecko", Diverged: true},
	}
	positions := []portfolio.Position{
		{Ticker: "AAPL", Name: "Apple", Quantity: d("3")},
		{Ticker: "BTCUSD", Name: "Bitcoin", Quantity: d("0.1")},
		{Ticker: "NOPE", Name: "Unknown", Quantity: d("1")},
		{Ticker: "aapl", Quantity: d("1")},
	}

	// Act
	got := portfolio.PreviewImport(t.Context(), prices, positions, 2)

	// Assert
	require.Len(t, got, 3)

	require.Equal(t, "AAPL", got[0].Ticker)
	require.True(t, d("4").Equal(got[0].Quantity))
	require.True(t, d("200").Equal(got[0].Price))
	require.Equal(t, "Finnhub,Stooq", got[0].Sources)
	require.False(t, got[0].Diverged)

	require.Equal(t, "BTC-USD", got[1].Ticker)
	require.True(t, got[1].Diverged)

	require.Equal(t, "NOPE", got[2].Ticker)
	require.True(t, got[2].Price.IsZero())
	require.Empty(t, got[2].Sources)
	require.True(t, got[2].Diverged)
}

type panickyConsensus struct{}

func (panickyConsensus) GetPriceConsensus(_ context.Context, ticker string) aggregate.Consensus {
	if ticker == "BOOM" {
		panic("boom")
	}
	return aggregate.Consensus{Price: d("1"), Sources: "Stooq"}
}

func TestPreviewImport_PanicStaysInItsItem(t *testing.T) {
	t.Parallel()

	got := portfolio.PreviewImport(t.Context(), panickyConsensus{}, []portfolio.Position{
		{Ticker: "BOOM", Quantity: d("1")},
		{Ticker: "AAPL", Quantity: d("1")},
	}, 0)

	require.Len(t, got, 2)
	require.True(t, got[0].Price.IsZero())
	require.True(t, got[0].Diverged)
	require.True(t, d("1").Equal(got[1].Price))
}

// gatedConsensus answers only once every expected caller has arrived.
type gatedConsensus struct{ wg *sync.WaitGroup }

func (g gatedConsensus) GetPriceConsensus(context.Context, string) aggregate.Consensus {
	g.wg.Done()
	g.wg.Wait()
	return aggregate.Consensus{Price: d("1")}
}

func TestPreviewImport_Concurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	wg.Add(3)
	positions := []portfolio.Position{
		{Ticker: "AAPL", Quantity: d("1")},
		{Ticker: "MSFT", Quantity: d("1")},
		{Ticker: "VALE3.SA", Quantity: d("1")},
	}

	done := make(chan []portfolio.PreviewItem, 1)
	go func() { done <- portfolio.PreviewImport(t.Context(), gatedConsensus{wg: &wg}, positions, 0) }()

	select {
	case got := <-done:
		require.Len(t, got, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("lookups did not run concurrently")
	}
}
