package twelvedata

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://api.twelvedata.com/price"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

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

func (p *Provider) Kind() provider.Kind { return provider.TwelveData }

func (p *Provider) Configured() bool { return p.cfg.APIKey != "" }

type priceResponse struct {
	Price   decimal.NullDecimal `json:"price"`
	Status  string              `json:"status"`
	Message string              `json:"message"`
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	if !p.Configured() {
		return provider.Quote{}, provider.NotConfigured(provider.TwelveData)
	}
	var res priceResponse
	err := provider.Request{
		Kind:    provider.TwelveData,
		URL:     p.cfg.BaseURL,
		Query:   url.Values{"symbol": {t.Symbol}, "apikey": {p.cfg.APIKey}},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	if res.Status == "error" && !res.Price.Valid {
		return provider.Quote{}, &provider.Failure{Provider: provider.TwelveData, Reason: provider.ReasonNotFound, Err: errors.New(res.Message)}
	}
	if !res.Price.Valid {
		return provider.Quote{}, provider.NotFound(provider.TwelveData, t.Symbol)
	}
	return provider.Positive(provider.TwelveData, t.Symbol, res.Price.Decimal)
}
