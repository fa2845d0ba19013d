package coincap

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://api.coincap.io/v2"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Provider is the crypto fallback. CoinCap only prices in USD.
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

func (p *Provider) Kind() provider.Kind { return provider.CoinCap }

func (p *Provider) Configured() bool { return true }

type assetsResponse struct {
	Data []struct {
		ID       string              `json:"id"`
		Symbol   string              `json:"symbol"`
		PriceUSD decimal.NullDecimal `json:"priceUsd"`
	} `json:"data"`
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	base := t.Base
	if base == "" {
		base = t.Symbol
	}
	if t.Currency != "" && t.Currency != "USD" {
		return provider.Quote{}, &provider.Failure{
			Provider: provider.CoinCap,
			Reason:   provider.ReasonNotFound,
			Err:      fmt.Errorf("currency %s not supported", t.Currency),
		}
	}

	var res assetsResponse
	err := provider.Request{
		Kind:    provider.CoinCap,
		URL:     p.cfg.BaseURL + "/assets",
		Query:   url.Values{"search": {base}},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	if len(res.Data) == 0 || !res.Data[0].PriceUSD.Valid {
		return provider.Quote{}, provider.NotFound(provider.CoinCap, base)
	}
	return provider.Positive(provider.CoinCap, t.Symbol, res.Data[0].PriceUSD.Decimal)
}
