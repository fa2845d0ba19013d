package stooq_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/provider/stooq"
	"portfolioquotes/internal/ticker"
)

func TestVariants(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"aapl.us", "aapl"}, stooq.Variants("AAPL"))
	require.Equal(t, []string{"brk.b.us", "brk.b", "brk-b", "brk-b.us"}, stooq.Variants("BRK.B"))
}

func TestFetch_FallsThroughVariants(t *testing.T) {
	t.Parallel()

	// Arrange: only the dashed spelling has data
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := r.URL.Query().Get("s")
		seen = append(seen, s)
		require.Equal(t, "d", r.URL.Query().Get("i"))
		if s == "brk-b" {
			fmt.Fprint(w, "Symbol,Date,Time,Open,Close,Volume\nBRK-B,2024-05-10,22:00:09,405.1,406.57,1000\n")
			return
		}
		fmt.Fprint(w, "Symbol,Date,Time,Open,Close,Volume\n"+s+",N/D,N/D,N/D,N/D,N/D\n")
	}))
	t.Cleanup(srv.Close)

	p := stooq.New(stooq.Config{BaseURL: srv.URL}, srv.Client())

	// Act
	q, err := p.Fetch(t.Context(), ticker.Parse("BRK.B"))

	// Assert
	require.NoError(t, err)
	require.Equal(t, provider.Stooq, q.Source)
	require.Equal(t, "BRK.B", q.Ticker)
	require.True(t, decimal.RequireFromString("406.57").Equal(q.Price))
	require.Equal(t, []string{"brk.b.us", "brk.b", "brk-b"}, seen)
}

func TestFetch_NoVariantResolves(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Symbol,Date,Time,Open,Close\nX,N/D,N/D,N/D,N/D\n")
	}))
	t.Cleanup(srv.Close)

	p := stooq.New(stooq.Config{BaseURL: srv.URL}, srv.Client())
	_, err := p.Fetch(t.Context(), ticker.Parse("ZZZINVALID"))
	require.ErrorIs(t, err, provider.ErrNotFound)
	require.True(t, p.Configured())
}

func TestFetch_TransportErrorSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	p := stooq.New(stooq.Config{BaseURL: srv.URL}, srv.Client())
	_, err := p.Fetch(t.Context(), ticker.Parse("AAPL"))
	require.ErrorIs(t, err, provider.ErrTransport)
}
