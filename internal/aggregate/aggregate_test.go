package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

func quotes(t *testing.T, pairs ...any) []provider.Quote {
	t.Helper()
	require.Zero(t, len(pairs)%2)
	out := make([]provider.Quote, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, provider.Quote{
			Price:  decimal.RequireFromString(pairs[i+1].(string)),
			Source: pairs[i].(provider.Kind),
		})
	}
	return out
}

func TestMedian(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"102", "100", "104"}, "102"},
		{[]string{"100", "110"}, "105"},
		{[]string{"7"}, "7"},
		{[]string{"4", "1", "3", "2"}, "2.5"},
	}
	for _, tt := range tests {
		in := make([]decimal.Decimal, len(tt.in))
		for i, s := range tt.in {
			in[i] = decimal.RequireFromString(s)
		}
		got := Median(in)
		require.True(t, decimal.RequireFromString(tt.want).Equal(got), "median(%v) = %s", tt.in, got)
	}
	require.True(t, Median(nil).IsZero())
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	t.Parallel()

	in := []decimal.Decimal{decimal.NewFromInt(3), decimal.NewFromInt(1), decimal.NewFromInt(2)}
	Median(in)
	require.True(t, decimal.NewFromInt(3).Equal(in[0]))
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category ticker.Category
		quotes   []provider.Quote
		price    string
		sources  string
		diverged bool
	}{
		{
			name:     "three sources",
			category: ticker.USEquity,
			quotes:   quotes(t, provider.Finnhub, "100", provider.Stooq, "102", provider.YahooQuote, "104"),
			price:    "102",
			sources:  "Finnhub,Stooq,YahooQuote",
			diverged: true,
		},
		{
			name:     "equity within 0.1%",
			category: ticker.USEquity,
			quotes:   quotes(t, provider.Finnhub, "100", provider.Stooq, "100.05"),
			price:    "100.025",
			sources:  "Finnhub,Stooq",
		},
		{
			name:     "equity beyond 0.1%",
			category: ticker.USEquity,
			quotes:   quotes(t, provider.Finnhub, "100", provider.Stooq, "100.20"),
			price:    "100.1",
			sources:  "Finnhub,Stooq",
			diverged: true,
		},
		{
			name:     "crypto within 1%",
			category: ticker.Crypto,
			quotes:   quotes(t, provider.CoinGecko, "50000", provider.CoinCap, "50300"),
			price:    "50150",
			sources:  "CoinCap,CoinGecko",
		},
		{
			name:     "crypto beyond 1%",
			category: ticker.Crypto,
			quotes:   quotes(t, provider.CoinGecko, "50000", provider.CoinCap, "51000"),
			price:    "50500",
			sources:  "CoinCap,CoinGecko",
			diverged: true,
		},
		{
			name:     "single source",
			category: ticker.BREquity,
			quotes:   quotes(t, provider.Brapi, "38.42"),
			price:    "38.42",
			sources:  "Brapi",
		},
		{
			name:     "duplicate kinds collapse in sources",
			category: ticker.USEquity,
			quotes:   quotes(t, provider.Stooq, "10", provider.Stooq, "10"),
			price:    "10",
			sources:  "Stooq",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.quotes, tt.category)
			require.True(t, decimal.RequireFromString(tt.price).Equal(got.Price), "price %s", got.Price)
			require.Equal(t, tt.sources, got.Sources)
			require.Equal(t, tt.diverged, got.Diverged)
		})
	}
}

func TestAggregate_NoQuotes(t *testing.T) {
	t.Parallel()

	got := Aggregate(nil, ticker.USEquity)
	require.True(t, got.Price.IsZero())
	require.Empty(t, got.Sources)
	require.True(t, got.Diverged)
}
