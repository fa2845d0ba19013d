package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/aggregate"
)

func TestSplitCSV(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"AAPL", "PETR4.SA", "BTC-USD"}, splitCSV(" AAPL, PETR4.SA ,,BTC-USD,"))
	require.Empty(t, splitCSV(""))
}

// barrierPricer answers only once n callers are inside GetPriceConsensus.
type barrierPricer struct {
	wg sync.WaitGroup
}

func (b *barrierPricer) GetPriceConsensus(_ context.Context, ticker string) aggregate.Consensus {
	b.wg.Done()
	b.wg.Wait()
	return aggregate.Consensus{Price: decimal.NewFromInt(int64(len(ticker))), Sources: "Stooq"}
}

func TestConsensusAll_Concurrent(t *testing.T) {
	t.Parallel()

	// Arrange: three tickers that can only finish together
	tickers := []string{"AAPL", "MSFT", "PETR4.SA"}
	p := &barrierPricer{}
	p.wg.Add(len(tickers))

	// Act
	done := make(chan map[string]aggregate.Consensus, 1)
	go func() { done <- consensusAll(t.Context(), p, tickers, 0) }()

	// Assert
	select {
	case got := <-done:
		require.Len(t, got, 3)
		require.True(t, decimal.NewFromInt(8).Equal(got["PETR4.SA"].Price))
		require.Equal(t, "Stooq", got["AAPL"].Sources)
	case <-time.After(2 * time.Second):
		t.Fatal("consensus lookups ran one after another")
	}
}
