package brapi

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://brapi.dev/api"

// FreeTickers are served without a token even when one is configured.
var FreeTickers = map[string]struct{}{
	"PETR4": {},
	"VALE3": {},
	"MGLU3": {},
	"ITUB4": {},
}

type Config struct {
	// Token is optional; without it only the free tickers resolve reliably.
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Provider quotes B3 equities. Tickers arrive with the .SA suffix, which the
// API does not accept.
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

func (p *Provider) Kind() provider.Kind { return provider.Brapi }

func (p *Provider) Configured() bool { return true }

type quoteResponse struct {
	Results []struct {
		Symbol             string          `json:"symbol"`
		RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
	} `json:"results"`
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	symbol := t.Base
	if symbol == "" {
		symbol = t.Symbol
	}
	query := url.Values{}
	if _, free := FreeTickers[symbol]; !free && p.cfg.Token != "" {
		query.Set("token", p.cfg.Token)
	}

	var res quoteResponse
	err := provider.Request{
		Kind:    provider.Brapi,
		URL:     p.cfg.BaseURL + "/quote/" + url.PathEscape(symbol),
		Query:   query,
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	if len(res.Results) == 0 {
		return provider.Quote{}, provider.NotFound(provider.Brapi, symbol)
	}
	q, err := provider.Positive(provider.Brapi, symbol, res.Results[0].RegularMarketPrice)
	if err != nil {
		return provider.Quote{}, err
	}
	q.Ticker = t.Symbol
	return q, nil
}
