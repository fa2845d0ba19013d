package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://api.coingecko.com/api/v3"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Provider is the primary crypto source. Known symbols map to coin ids
// statically; others are resolved once through the search endpoint and
// remembered. Misses are not remembered.
type Provider struct {
	cfg    Config
	client provider.HTTPClient

	idsMu sync.RWMutex
	ids   map[string]string
	// coalesce concurrent searches per base
	sf singleflight.Group
}

func New(cfg Config, hc provider.HTTPClient) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = provider.DefaultTimeout
	}
	return &Provider{cfg: cfg, client: hc, ids: make(map[string]string)}
}

func (p *Provider) Kind() provider.Kind { return provider.CoinGecko }

func (p *Provider) Configured() bool { return true }

type searchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
	} `json:"coins"`
}

// simple/price answers {"bitcoin": {"usd": 64000.1}}.
type priceResponse map[string]map[string]decimal.Decimal

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	base, currency := t.Base, t.Currency
	if base == "" {
		base = t.Symbol
	}
	if currency == "" {
		currency = ticker.DefaultCurrency
	}
	currency = strings.ToLower(currency)

	id, err := p.coinID(ctx, base)
	if err != nil {
		return provider.Quote{}, err
	}

	var res priceResponse
	err = provider.Request{
		Kind:    provider.CoinGecko,
		URL:     p.cfg.BaseURL + "/simple/price",
		Query:   url.Values{"ids": {id}, "vs_currencies": {currency}},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return provider.Quote{}, err
	}
	price, ok := res[id][currency]
	if !ok {
		return provider.Quote{}, provider.NotFound(provider.CoinGecko, t.Symbol)
	}
	return provider.Positive(provider.CoinGecko, t.Symbol, price)
}

func (p *Provider) coinID(ctx context.Context, base string) (string, error) {
	if id, ok := ticker.CoinID(base); ok {
		return id, nil
	}
	p.idsMu.RLock()
	id, ok := p.ids[base]
	p.idsMu.RUnlock()
	if ok {
		return id, nil
	}

	// The search is shared, so it runs detached from whichever caller started
	// it; the request timeout still bounds it.
	ch := p.sf.DoChan(base, func() (any, error) {
		id, err := p.search(context.WithoutCancel(ctx), base)
		if err != nil {
			return "", err
		}
		p.idsMu.Lock()
		p.ids[base] = id
		p.idsMu.Unlock()
		return id, nil
	})
	select {
	case <-ctx.Done():
		return "", waitError(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func waitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.Failure{Provider: provider.CoinGecko, Reason: provider.ReasonTimeout, Err: err}
	}
	return provider.Transport(provider.CoinGecko, err)
}

func (p *Provider) search(ctx context.Context, base string) (string, error) {
	var res searchResponse
	err := provider.Request{
		Kind:    provider.CoinGecko,
		URL:     p.cfg.BaseURL + "/search",
		Query:   url.Values{"query": {base}},
		Timeout: p.cfg.Timeout,
	}.JSON(ctx, p.client, &res)
	if err != nil {
		return "", err
	}
	if len(res.Coins) == 0 || res.Coins[0].ID == "" {
		return "", &provider.Failure{
			Provider: provider.CoinGecko,
			Reason:   provider.ReasonNotFound,
			Err:      fmt.Errorf("crypto %s not supported", base),
		}
	}
	return res.Coins[0].ID, nil
}
