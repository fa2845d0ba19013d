package alphavantage

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://www.alphavantage.co/query"

// DefaultTimeout is longer than other providers; the free tier answers slowly.
const DefaultTimeout = 15 * time.Second

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider quotes US equities through the GLOBAL_QUOTE function.
type Provider struct {
	cfg    Config
	client provider.HTTPClient
}

func New(cfg Config, hc provider.HTTPClient) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Kind() provider.Kind { return provider.AlphaVantage }

func (p *Provider) Configured() bool { return p.cfg.APIKey != "" }

type response struct {
	GlobalQuote struct {
		Symbol string              `json:"01. symbol"`
		Price  decimal.NullDecimal `json:"05. price"`
	} `json:"Global Quote"`
	// Information and Note carry rate-limit and key errors with a 200 status.
	Information string `json:"Information,omitempty"`
	Note        string `json:"Note,omitempty"`
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	if !p.Configured() {
		return provider.Quote{}, provider.NotConfigured(provider.AlphaVantage)
	}
	var res response
	err := provider.Request{
		Kind: provider.AlphaVantage,
		URL:  p.cfg.BaseURL,
		Query: url.Values{
			"function": {"GLOBAL_QUOTE"},
			"symbol":   {t.Symbol},
			"apikey":   {p.cfg.APIKey},
		},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	if msg := res.Information + res.Note; msg != "" {
		return provider.Quote{}, provider.Transport(provider.AlphaVantage, errors.New(msg))
	}
	if !res.GlobalQuote.Price.Valid {
		return provider.Quote{}, provider.NotFound(provider.AlphaVantage, t.Symbol)
	}
	return provider.Positive(provider.AlphaVantage, t.Symbol, res.GlobalQuote.Price.Decimal)
}
