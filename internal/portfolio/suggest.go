package portfolio

import (
	"context"

	"github.com/shopspring/decimal"
)

// Suggestion reasons.
const (
	ReasonTargetValueZero   = "target_value_zero"
	ReasonPriceNotFound     = "price_not_found"
	ReasonFallbackPortfolio = "fallback_portfolio"
)

// quantityPrecision is the number of decimal places kept in a suggested
// quantity; fractional crypto positions need several.
const quantityPrecision = 8

var hundred = decimal.NewFromInt(100)

type SuggestionInput struct {
	Ticker         string
	PortfolioTotal decimal.Decimal
	// ClassPct is the class share of the portfolio, in percent.
	ClassPct decimal.Decimal
	// AssetPct is the asset share of its class, in percent.
	AssetPct decimal.Decimal
}

type Suggestion struct {
	Quantity         decimal.Decimal `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	Source           string          `json:"source"`
	TargetValue      decimal.Decimal `json:"target_value"`
	Reason           string          `json:"reason"`
	PortfolioTotal   decimal.Decimal `json:"portfolio_total_value"`
	ClassTargetPct   decimal.Decimal `json:"class_target_percentage"`
	ClassTargetValue decimal.Decimal `json:"class_target_value"`
	UsedFallback     bool            `json:"used_fallback"`
}

// SuggestQuantity sizes a position so the asset reaches AssetPct of its
// class target. A class without a target falls back to the whole portfolio.
func SuggestQuantity(ctx context.Context, prices ConsensusPricer, in SuggestionInput) Suggestion {
	out := Suggestion{
		PortfolioTotal: in.PortfolioTotal,
		ClassTargetPct: in.ClassPct,
	}
	classTarget := in.ClassPct.Div(hundred).Mul(in.PortfolioTotal)
	if !classTarget.IsPositive() && in.PortfolioTotal.IsPositive() {
		classTarget = in.PortfolioTotal
		out.UsedFallback = true
	}
	out.ClassTargetValue = classTarget

	target := in.AssetPct.Div(hundred).Mul(classTarget)
	if !target.IsPositive() {
		out.Reason = ReasonTargetValueZero
		return out
	}
	out.TargetValue = target

	c := prices.GetPriceConsensus(ctx, in.Ticker)
	if !c.Price.IsPositive() {
		out.Reason = ReasonPriceNotFound
		return out
	}
	out.Price = c.Price
	out.Source = c.Sources
	out.Quantity = target.DivRound(c.Price, quantityPrecision)
	if out.UsedFallback {
		out.Reason = ReasonFallbackPortfolio
	}
	return out
}
