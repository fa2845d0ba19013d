package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"portfolioquotes/internal/ticker"
)

// Kind identifies a quote source. Its value is the source name reported to
// callers.
type Kind string

const (
	Finnhub      Kind = "Finnhub"
	AlphaVantage Kind = "AlphaVantage"
	TwelveData   Kind = "TwelveData"
	FMP          Kind = "FMP"
	Stooq        Kind = "Stooq"
	YahooQuote   Kind = "YahooQuote"
	Brapi        Kind = "Brapi"
	CoinGecko    Kind = "CoinGecko"
	CoinCap      Kind = "CoinCap"
)

// Quote is the normalized shape returned by all providers.
type Quote struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
	Source Kind            `json:"source"`
}

// Provider fetches a single quote from one upstream.
//
//go:generate mockgen -package=providertest -destination=providertest/mock_provider.go -mock_names=Provider=MockProvider . Provider
type Provider interface {
	Kind() Kind
	// Configured reports whether the credentials the provider needs are
	// present. Unconfigured providers are skipped, not failed.
	Configured() bool
	Fetch(ctx context.Context, t ticker.Ticker) (Quote, error)
}

// Reason classifies why a fetch failed.
type Reason int

const (
	ReasonNotConfigured Reason = iota + 1
	ReasonTimeout
	ReasonNotFound
	ReasonTransport
)

var (
	ErrNotConfigured = errors.New("not configured")
	ErrTimeout       = errors.New("request timed out")
	ErrNotFound      = errors.New("price not found")
	ErrTransport     = errors.New("transport error")
)

func (r Reason) sentinel() error {
	switch r {
	case ReasonNotConfigured:
		return ErrNotConfigured
	case ReasonTimeout:
		return ErrTimeout
	case ReasonNotFound:
		return ErrNotFound
	default:
		return ErrTransport
	}
}

// Failure is the error every provider returns from Fetch.
type Failure struct {
	Provider Kind
	Reason   Reason
	Err      error
}

func (f *Failure) Error() string {
	if f.Err == nil || f.Reason == ReasonTimeout {
		return fmt.Sprintf("%s: %v", f.Provider, f.Reason.sentinel())
	}
	return fmt.Sprintf("%s: %v", f.Provider, f.Err)
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Reason.sentinel()}
	}
	return []error{f.Reason.sentinel(), f.Err}
}

// NotFound reports that the provider answered without a usable price.
func NotFound(k Kind, symbol string) *Failure {
	return &Failure{Provider: k, Reason: ReasonNotFound, Err: fmt.Errorf("price not found for %s", symbol)}
}

// NotConfigured reports a missing credential.
func NotConfigured(k Kind) *Failure {
	return &Failure{Provider: k, Reason: ReasonNotConfigured}
}

// Transport wraps a malformed response or a non-2xx status.
func Transport(k Kind, err error) *Failure {
	return &Failure{Provider: k, Reason: ReasonTransport, Err: err}
}

// ReasonOf extracts the failure reason of err, or 0 when err is not a Failure.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return 0
}

// Positive returns a quote when price is a usable value.
func Positive(k Kind, symbol string, price decimal.Decimal) (Quote, error) {
	if !price.IsPositive() {
		return Quote{}, NotFound(k, symbol)
	}
	return Quote{Ticker: symbol, Price: price, Source: k}, nil
}
