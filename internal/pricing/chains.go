package pricing

import (
	"time"

	"portfolioquotes/internal/config"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/provider/alphavantage"
	"portfolioquotes/internal/provider/brapi"
	"portfolioquotes/internal/provider/coincap"
	"portfolioquotes/internal/provider/coingecko"
	"portfolioquotes/internal/provider/finnhub"
	"portfolioquotes/internal/provider/fmp"
	"portfolioquotes/internal/provider/ratelimit"
	"portfolioquotes/internal/provider/stooq"
	"portfolioquotes/internal/provider/twelvedata"
	"portfolioquotes/internal/provider/yahoo"
	"portfolioquotes/internal/ticker"
)

// Chains maps each category to its providers in fallback order. GetPrice
// stops at the first positive price; consensus queries all of them.
type Chains map[ticker.Category][]provider.Provider

// gateWait is how long a lookup queues for a rate-limited provider. A
// provider out of budget fails at once so the walk moves on to the next one.
const gateWait = 0

// BuildChains constructs every adapter from cfg, gated by its rate limits.
func BuildChains(cfg config.Providers, hc provider.HTTPClient) Chains {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	gate := func(p provider.Provider, pc config.Provider) provider.Provider {
		return ratelimit.Wrap(p, pc.MaxRequestsPerMinute, pc.Burst, time.Duration(pc.MinRequestIntervalSec)*time.Second, gateWait)
	}

	return Chains{
		ticker.USEquity: {
			gate(finnhub.New(finnhub.Config{APIKey: cfg.Finnhub.APIKey, BaseURL: cfg.Finnhub.BaseURL, Timeout: timeout}, hc), cfg.Finnhub),
			// AlphaVantage never gets less than its own, longer default.
			gate(alphavantage.New(alphavantage.Config{APIKey: cfg.AlphaVantage.APIKey, BaseURL: cfg.AlphaVantage.BaseURL, Timeout: max(timeout, alphavantage.DefaultTimeout)}, hc), cfg.AlphaVantage),
			gate(twelvedata.New(twelvedata.Config{APIKey: cfg.TwelveData.APIKey, BaseURL: cfg.TwelveData.BaseURL, Timeout: timeout}, hc), cfg.TwelveData),
			gate(fmp.New(fmp.Config{APIKey: cfg.FMP.APIKey, BaseURL: cfg.FMP.BaseURL, Timeout: timeout}, hc), cfg.FMP),
			gate(stooq.New(stooq.Config{BaseURL: cfg.Stooq.BaseURL, Timeout: timeout}, hc), cfg.Stooq),
			gate(yahoo.New(yahoo.Config{BaseURL: cfg.YahooQuote.BaseURL, Timeout: timeout}, hc), cfg.YahooQuote),
		},
		ticker.BREquity: {
			gate(brapi.New(brapi.Config{Token: cfg.Brapi.APIKey, BaseURL: cfg.Brapi.BaseURL, Timeout: timeout}, hc), cfg.Brapi),
		},
		ticker.Crypto: {
			gate(coingecko.New(coingecko.Config{BaseURL: cfg.CoinGecko.BaseURL, Timeout: timeout}, hc), cfg.CoinGecko),
			gate(coincap.New(coincap.Config{BaseURL: cfg.CoinCap.BaseURL, Timeout: timeout}, hc), cfg.CoinCap),
		},
	}
}
