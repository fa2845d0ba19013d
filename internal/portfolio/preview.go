package portfolio

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"portfolioquotes/internal/aggregate"
	"portfolioquotes/internal/ticker"
)

// Position is one holding read from a broker statement.
type Position struct {
	Ticker   string          `json:"ticker"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
}

// PreviewItem is a consolidated position with its consensus price. A ticker
// nobody could price has a zero Price and Diverged set.
type PreviewItem struct {
	Ticker   string          `json:"ticker"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Sources  string          `json:"price_sources"`
	Diverged bool            `json:"price_diverged"`
}

// importKey normalizes a statement ticker. Statements print crypto pairs as
// BTCUSD, so a trailing USD without a separator is split off.
func importKey(raw string) string {
	key := ticker.Normalize(raw)
	if len(key) > 3 && strings.HasSuffix(key, "USD") && !strings.Contains(key, "-") {
		key = key[:len(key)-3] + "-USD"
	}
	return key
}

// ConsolidatePositions merges positions sharing a ticker, summing their
// quantities. The first name seen wins; order of first appearance is kept.
// Positions without a ticker are dropped.
func ConsolidatePositions(positions []Position) []Position {
	out := make([]Position, 0, len(positions))
	index := make(map[string]int, len(positions))
	for _, p := range positions {
		key := importKey(p.Ticker)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			out[i].Quantity = out[i].Quantity.Add(p.Quantity)
			continue
		}
		index[key] = len(out)
		out = append(out, Position{Ticker: key, Name: p.Name, Quantity: p.Quantity})
	}
	return out
}

// PreviewImport consolidates positions and prices each ticker with a
// consensus lookup, at most limit at a time when limit is positive.
func PreviewImport(ctx context.Context, prices ConsensusPricer, positions []Position, limit int) []PreviewItem {
	merged := ConsolidatePositions(positions)
	items := make([]PreviewItem, len(merged))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range merged {
		g.Go(func() error {
			c := consensus(ctx, prices, p.Ticker)
			items[i] = PreviewItem{
				Ticker:   p.Ticker,
				Name:     p.Name,
				Quantity: p.Quantity,
				Price:    c.Price,
				Sources:  c.Sources,
				Diverged: c.Diverged,
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// consensus isolates a panicking lookup to its own item.
func consensus(ctx context.Context, prices ConsensusPricer, t string) (c aggregate.Consensus) {
	defer func() {
		if rec := recover(); rec != nil {
			c = aggregate.Consensus{Price: decimal.Zero, Diverged: true}
		}
	}()
	return prices.GetPriceConsensus(ctx, t)
}
