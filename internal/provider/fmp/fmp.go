package fmp

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://financialmodelingprep.com/api/v3/quote-short"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider quotes through FinancialModelingPrep's quote-short endpoint.
type Provider struct {
	cfg    Config
	client provider.HTTPClient
}

func New(cfg Config, hc provider.HTTPClient) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = provider.DefaultTimeout
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Kind() provider.Kind { return provider.FMP }

func (p *Provider) Configured() bool { return p.cfg.APIKey != "" }

type shortQuote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	if !p.Configured() {
		return provider.Quote{}, provider.NotConfigured(provider.FMP)
	}
	var res []shortQuote
	err := provider.Request{
		Kind:    provider.FMP,
		URL:     p.cfg.BaseURL + "/" + url.PathEscape(t.Symbol),
		Query:   url.Values{"apikey": {p.cfg.APIKey}},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	if len(res) == 0 {
		return provider.Quote{}, provider.NotFound(provider.FMP, t.Symbol)
	}
	return provider.Positive(provider.FMP, t.Symbol, res[0].Price)
}
