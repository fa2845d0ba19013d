package yahoo

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://query1.finance.yahoo.com/v7/finance/quote"

// userAgent is sent because the endpoint rejects non-browser agents.
const userAgent = "Mozilla/5.0"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Provider is the unauthenticated quote-search endpoint, the last resort of
// the US chain.
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

func (p *Provider) Kind() provider.Kind { return provider.YahooQuote }

func (p *Provider) Configured() bool { return true }

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string              `json:"symbol"`
			RegularMarketPrice decimal.NullDecimal `json:"regularMarketPrice"`
			PostMarketPrice    decimal.NullDecimal `json:"postMarketPrice"`
			PreMarketPrice     decimal.NullDecimal `json:"preMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	var res quoteResponse
	err := provider.Request{
		Kind:    provider.YahooQuote,
		URL:     p.cfg.BaseURL,
		Query:   url.Values{"symbols": {t.Symbol}},
		Header:  http.Header{"User-Agent": {userAgent}},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	if len(res.QuoteResponse.Result) == 0 {
		return provider.Quote{}, provider.NotFound(provider.YahooQuote, t.Symbol)
	}
	q := res.QuoteResponse.Result[0]
	for _, price := range []decimal.NullDecimal{q.RegularMarketPrice, q.PostMarketPrice, q.PreMarketPrice} {
		if price.Valid && price.Decimal.IsPositive() {
			return provider.Positive(provider.YahooQuote, t.Symbol, price.Decimal)
		}
	}
	return provider.Quote{}, provider.NotFound(provider.YahooQuote, t.Symbol)
}
