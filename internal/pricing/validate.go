package pricing

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

// Provider status values reported by ValidateProviders.
const (
	StatusOK            = "ok"
	StatusNotConfigured = "não configurado"
	statusErrorPrefix   = "erro: "
)

// probeSymbol is the ticker every US provider is expected to know.
const probeSymbol = "AAPL"

var validationKeys = map[provider.Kind]string{
	provider.Finnhub:      "finnhub",
	provider.AlphaVantage: "alphavantage",
	provider.TwelveData:   "twelvedata",
	provider.FMP:          "fmp",
	provider.Stooq:        "stooq",
	provider.YahooQuote:   "yahoo_quote",
}

// ValidateProviders probes each US provider with one lookup. Unconfigured
// providers are reported without a network call. It never fails.
func (s *Service) ValidateProviders(ctx context.Context) map[string]string {
	probe := ticker.Parse(probeSymbol)
	out := make(map[string]string, len(validationKeys))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	set := func(key, status string) {
		mu.Lock()
		out[key] = status
		mu.Unlock()
	}
	for _, p := range s.chains[ticker.USEquity] {
		key, ok := validationKeys[p.Kind()]
		if !ok {
			continue
		}
		if !p.Configured() {
			set(key, StatusNotConfigured)
			continue
		}
		g.Go(func() error {
			if _, err := fetch(ctx, p, probe); err != nil {
				set(key, statusErrorPrefix+err.Error())
				return nil
			}
			set(key, StatusOK)
			return nil
		})
	}
	_ = g.Wait()

	for key, status := range out {
		s.log.Info("provider status", zap.String("provider", key), zap.String("status", status))
	}
	return out
}
