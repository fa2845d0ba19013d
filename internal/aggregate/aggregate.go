package aggregate

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

// Divergence thresholds, as fractions of the median.
var (
	CryptoThreshold = decimal.RequireFromString("0.01")
	EquityThreshold = decimal.RequireFromString("0.001")
)

// medianPrecision is the division precision used for even-count medians and
// the divergence ratio.
const medianPrecision = 16

// Consensus is the reconciled price across every source that answered.
type Consensus struct {
	Price    decimal.Decimal `json:"price"`
	Sources  string          `json:"sources"`
	Diverged bool            `json:"diverged"`
}

// Threshold returns the divergence threshold for a ticker category.
func Threshold(c ticker.Category) decimal.Decimal {
	if c == ticker.Crypto {
		return CryptoThreshold
	}
	return EquityThreshold
}

// Median returns the middle value of prices, or the mean of the two middle
// values for an even count. It returns zero for an empty slice.
func Median(prices []decimal.Decimal) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	sorted := slices.Clone(prices)
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return a.Cmp(b) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).DivRound(decimal.NewFromInt(2), medianPrecision)
}

// Spread returns (max-min)/median, or zero when the median is not positive.
func Spread(prices []decimal.Decimal, median decimal.Decimal) decimal.Decimal {
	if len(prices) == 0 || !median.IsPositive() {
		return decimal.Zero
	}
	lo, hi := decimal.Min(prices[0], prices[1:]...), decimal.Max(prices[0], prices[1:]...)
	return hi.Sub(lo).DivRound(median, medianPrecision)
}

// Aggregate reduces the quotes for one ticker to a consensus. With no quotes
// the result is a zero price flagged as diverged.
func Aggregate(quotes []provider.Quote, c ticker.Category) Consensus {
	if len(quotes) == 0 {
		return Consensus{Price: decimal.Zero, Diverged: true}
	}
	prices := make([]decimal.Decimal, 0, len(quotes))
	kinds := make([]string, 0, len(quotes))
	for _, q := range quotes {
		prices = append(prices, q.Price)
		kinds = append(kinds, string(q.Source))
	}
	slices.Sort(kinds)
	kinds = slices.Compact(kinds)

	median := Median(prices)
	return Consensus{
		Price:    median,
		Sources:  strings.Join(kinds, ","),
		Diverged: Spread(prices, median).GreaterThan(Threshold(c)),
	}
}
