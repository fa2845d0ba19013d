package provider_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/provider"
)

func TestFailure_ErrorsIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	f := provider.Transport(provider.Finnhub, cause)
	require.ErrorIs(t, f, provider.ErrTransport)
	require.ErrorIs(t, f, cause)
	require.Equal(t, "Finnhub: boom", f.Error())

	nf := provider.NotFound(provider.Brapi, "PETR4")
	require.ErrorIs(t, nf, provider.ErrNotFound)
	require.Equal(t, "Brapi: price not found for PETR4", nf.Error())

	nc := provider.NotConfigured(provider.TwelveData)
	require.ErrorIs(t, nc, provider.ErrNotConfigured)
	require.Equal(t, provider.ReasonNotConfigured, provider.ReasonOf(nc))
	require.Equal(t, provider.Reason(0), provider.ReasonOf(cause))
}

func TestPositive(t *testing.T) {
	t.Parallel()

	q, err := provider.Positive(provider.Stooq, "AAPL", decimal.RequireFromString("190.1"))
	require.NoError(t, err)
	require.Equal(t, provider.Stooq, q.Source)
	require.Equal(t, "AAPL", q.Ticker)

	_, err = provider.Positive(provider.Stooq, "AAPL", decimal.Zero)
	require.ErrorIs(t, err, provider.ErrNotFound)

	_, err = provider.Positive(provider.Stooq, "AAPL", decimal.NewFromInt(-1))
	require.ErrorIs(t, err, provider.ErrNotFound)
}
