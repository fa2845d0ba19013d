package coingecko_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/provider/coingecko"
	"portfolioquotes/internal/ticker"
)

func newServer(t *testing.T, searchHits *int, coins []map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		*searchHits++
		_ = json.NewEncoder(w).Encode(map[string]any{"coins": coins})
	})
	mux.HandleFunc("/simple/price", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		ccy := r.URL.Query().Get("vs_currencies")
		prices := map[string]map[string]float64{
			"bitcoin": {"usd": 64000.5, "brl": 330000},
			"pepe":    {"brl": 0.00005},
		}
		out := map[string]map[string]float64{}
		if p, ok := prices[id][ccy]; ok {
			out[id] = map[string]float64{ccy: p}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// unlisted builds a crypto ticker whose base has no static coin id.
func unlisted(base, ccy string) ticker.Ticker {
	return ticker.Ticker{Symbol: base + "-" + ccy, Category: ticker.Crypto, Base: base, Currency: ccy}
}

func TestFetch_StaticID(t *testing.T) {
	t.Parallel()

	var searches int
	srv := newServer(t, &searches, nil)
	p := coingecko.New(coingecko.Config{BaseURL: srv.URL}, srv.Client())

	q, err := p.Fetch(t.Context(), ticker.Parse("BTC-BRL"))
	require.NoError(t, err)
	require.Equal(t, provider.CoinGecko, q.Source)
	require.Equal(t, "BTC-BRL", q.Ticker)
	require.True(t, decimal.NewFromInt(330000).Equal(q.Price))
	require.Zero(t, searches)
}

func TestFetch_SearchResolvesUnknownBase(t *testing.T) {
	t.Parallel()

	var searches int
	srv := newServer(t, &searches, []map[string]string{{"id": "pepe", "symbol": "PEPE"}})
	p := coingecko.New(coingecko.Config{BaseURL: srv.URL}, srv.Client())

	q, err := p.Fetch(t.Context(), unlisted("PEPE", "BRL"))
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("0.00005").Equal(q.Price))
	require.Equal(t, 1, searches)

	// the resolved id is remembered
	_, err = p.Fetch(t.Context(), unlisted("PEPE", "BRL"))
	require.NoError(t, err)
	require.Equal(t, 1, searches)
}

func TestFetch_SearchMiss(t *testing.T) {
	t.Parallel()

	var searches int
	srv := newServer(t, &searches, nil)
	p := coingecko.New(coingecko.Config{BaseURL: srv.URL}, srv.Client())

	_, err := p.Fetch(t.Context(), unlisted("NOPECOIN", "USD"))
	require.ErrorIs(t, err, provider.ErrNotFound)
	require.Equal(t, "CoinGecko: crypto NOPECOIN not supported", err.Error())

	// a miss is searched again next time
	_, err = p.Fetch(t.Context(), unlisted("NOPECOIN", "USD"))
	require.Error(t, err)
	require.Equal(t, 2, searches)
}

func TestFetch_MissingCurrency(t *testing.T) {
	t.Parallel()

	var searches int
	srv := newServer(t, &searches, nil)
	p := coingecko.New(coingecko.Config{BaseURL: srv.URL}, srv.Client())

	_, err := p.Fetch(t.Context(), ticker.Parse("BTC-EUR"))
	require.ErrorIs(t, err, provider.ErrNotFound)
}

func TestFetch_SearchSurvivesCanceledCaller(t *testing.T) {
	t.Parallel()

	// Arrange: a search that blocks until released
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var searches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		started <- struct{}{}
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"coins": []map[string]string{{"id": "pepe", "symbol": "PEPE"}}})
	})
	mux.HandleFunc("/simple/price", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]map[string]float64{"pepe": {"usd": 0.00001}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	p := coingecko.New(coingecko.Config{BaseURL: srv.URL}, srv.Client())

	// Act: the caller that started the search gives up while it is in flight
	ctx, cancel := context.WithCancel(t.Context())
	first := make(chan error, 1)
	go func() {
		_, err := p.Fetch(ctx, unlisted("PEPE", "USD"))
		first <- err
	}()
	<-started
	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	second := make(chan error, 1)
	go func() {
		_, err := p.Fetch(t.Context(), unlisted("PEPE", "USD"))
		second <- err
	}()
	close(release)

	// Assert: the other caller still gets the shared search result
	require.NoError(t, <-second)
	require.EqualValues(t, 1, searches.Load())
}
