package finnhub

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://finnhub.io/api/v1"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider quotes US equities and ETFs through Finnhub's /quote endpoint.
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

func (p *Provider) Kind() provider.Kind { return provider.Finnhub }

func (p *Provider) Configured() bool { return p.cfg.APIKey != "" }

type quoteResponse struct {
	// Current price; zero for unknown symbols.
	C decimal.Decimal `json:"c"`
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	if !p.Configured() {
		return provider.Quote{}, provider.NotConfigured(provider.Finnhub)
	}
	var res quoteResponse
	err := provider.Request{
		Kind:    provider.Finnhub,
		URL:     p.cfg.BaseURL + "/quote",
		Query:   url.Values{"symbol": {t.Symbol}, "token": {p.cfg.APIKey}},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	return provider.Positive(provider.Finnhub, t.Symbol, res.C)
}
