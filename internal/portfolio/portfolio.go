// Package portfolio refreshes stored asset prices and sizes new positions.
package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/aggregate"
	"portfolioquotes/internal/pricing"
)

// ErrNotFound is returned for an unknown portfolio or asset class.
var ErrNotFound = errors.New("not found")

// Repository is the persistence the refresh and suggestion flows need.
type Repository interface {
	// PortfolioTickers lists the distinct tickers held by a portfolio.
	PortfolioTickers(ctx context.Context, portfolioID int64) ([]string, error)
	SavePrice(ctx context.Context, ticker string, price decimal.Decimal, source string, at time.Time) error
	TouchPortfolio(ctx context.Context, portfolioID int64, at time.Time) error
	// Targets loads the portfolio total value and the class target percentage.
	Targets(ctx context.Context, portfolioID, classID int64) (Targets, error)
}

type Targets struct {
	PortfolioTotal decimal.Decimal `db:"total_value"`
	ClassPct       decimal.Decimal `db:"target_percentage"`
}

// BatchPricer is satisfied by *pricing.Service.
type BatchPricer interface {
	GetPricesBatch(ctx context.Context, tickers []string) map[string]pricing.Result
}

// ConsensusPricer is satisfied by *pricing.Service.
type ConsensusPricer interface {
	GetPriceConsensus(ctx context.Context, ticker string) aggregate.Consensus
}
