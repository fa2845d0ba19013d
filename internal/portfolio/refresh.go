package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxReportedErrors caps the error strings carried in a summary.
const maxReportedErrors = 5

// RefreshSummary reports one portfolio refresh.
type RefreshSummary struct {
	ID           string    `json:"id"`
	Message      string    `json:"message"`
	UpdatedAt    time.Time `json:"updated_at"`
	Tickers      int       `json:"tickers"`
	UpdatedCount int       `json:"updated_count"`
	ErrorCount   int       `json:"error_count"`
	Errors       []string  `json:"errors"`
}

type Refresher struct {
	Repo   Repository
	Prices BatchPricer
	Log    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Refresh prices every ticker of the portfolio in one batch and stores the
// positive prices. Tickers that could not be priced keep their stored price.
func (r *Refresher) Refresh(ctx context.Context, portfolioID int64) (RefreshSummary, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	tickers, err := r.Repo.PortfolioTickers(ctx, portfolioID)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("portfolio %d tickers: %w", portfolioID, err)
	}
	summary := RefreshSummary{ID: uuid.NewString(), Errors: []string{}}
	if len(tickers) == 0 {
		summary.Message = "no assets to update"
		summary.UpdatedAt = now()
		return summary, nil
	}

	prices := r.Prices.GetPricesBatch(ctx, tickers)
	at := now()
	summary.Tickers = len(tickers)
	for _, t := range tickers {
		res, ok := prices[t]
		if !ok {
			continue
		}
		if !res.Price.IsPositive() {
			summary.fail(fmt.Sprintf("%s: %s", t, res.Error))
			continue
		}
		if err := r.Repo.SavePrice(ctx, t, res.Price, res.Source, at); err != nil {
			log.Warn("saving price failed", zap.String("refresh_id", summary.ID), zap.String("ticker", t), zap.Error(err))
			summary.fail(fmt.Sprintf("%s: %v", t, err))
			continue
		}
		summary.UpdatedCount++
	}

	if err := r.Repo.TouchPortfolio(ctx, portfolioID, at); err != nil {
		return summary, fmt.Errorf("portfolio %d timestamp: %w", portfolioID, err)
	}
	summary.UpdatedAt = at
	summary.Message = fmt.Sprintf("updated %d of %d assets", summary.UpdatedCount, len(tickers))
	log.Info("portfolio refreshed",
		zap.String("refresh_id", summary.ID),
		zap.Int64("portfolio_id", portfolioID),
		zap.Int("updated", summary.UpdatedCount),
		zap.Int("errors", summary.ErrorCount))
	return summary, nil
}

func (s *RefreshSummary) fail(msg string) {
	s.ErrorCount++
	if len(s.Errors) < maxReportedErrors {
		s.Errors = append(s.Errors, msg)
	}
}
