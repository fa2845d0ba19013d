package stooq

import (
	"context"
	"encoding/csv"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

const baseURL = "https://stooq.com/q/l/"

// closeColumn is the close price in Stooq's light quote CSV.
const closeColumn = 4

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Provider reads Stooq's free CSV quotes. No credentials are needed.
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

func (p *Provider) Kind() provider.Kind { return provider.Stooq }

func (p *Provider) Configured() bool { return true }

// Variants lists the symbol spellings tried in order. Stooq lists most US
// instruments with a .us suffix and class shares with a dash.
func Variants(symbol string) []string {
	base := strings.ToLower(symbol)
	dashed := strings.ReplaceAll(base, ".", "-")
	out := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	for _, v := range []string{base + ".us", base, dashed, dashed + ".us"} {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (p *Provider) Fetch(ctx context.Context, t ticker.Ticker) (provider.Quote, error) {
	var lastErr error
	for _, symbol := range Variants(t.Symbol) {
		body, err := provider.Request{
			Kind:    provider.Stooq,
			URL:     p.cfg.BaseURL,
			Query:   url.Values{"s": {symbol}, "i": {"d"}},
			Timeout: p.cfg.Timeout,
		}.Text(ctx, p.client)
		if err != nil {
			if provider.ReasonOf(err) == provider.ReasonTimeout || ctx.Err() != nil {
				return provider.Quote{}, err
			}
			lastErr = err
			continue
		}
		price, ok := parseClose(body)
		if !ok {
			continue
		}
		return provider.Positive(provider.Stooq, t.Symbol, price)
	}
	if lastErr != nil && provider.ReasonOf(lastErr) != provider.ReasonNotFound {
		return provider.Quote{}, lastErr
	}
	return provider.Quote{}, provider.NotFound(provider.Stooq, t.Symbol)
}

// parseClose extracts the close price from the last CSV line. The body must
// hold at least a header and a data line.
func parseClose(body string) (decimal.Decimal, bool) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(body)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil && !errors.Is(err, csv.ErrFieldCount) {
		return decimal.Decimal{}, false
	}
	if len(records) < 2 {
		return decimal.Decimal{}, false
	}
	last := records[len(records)-1]
	if len(last) <= closeColumn {
		return decimal.Decimal{}, false
	}
	raw := strings.TrimSpace(last[closeColumn])
	if raw == "" || strings.EqualFold(raw, "N/A") || strings.EqualFold(raw, "N/D") {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, false
	}
	return price, true
}
