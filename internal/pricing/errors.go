package pricing

import (
	"errors"
	"fmt"
	"strings"

	"portfolioquotes/internal/ticker"
)

// ErrNoPrice matches every NoPriceError.
var ErrNoPrice = errors.New("no price available")

// usHint is appended when the US chain is exhausted.
const usHint = "could not get a price for stocks/ETFs; configure FINNHUB_KEY or ALPHAVANTAGE_KEY for better coverage"

// NoPriceError reports that no provider produced a positive price.
type NoPriceError struct {
	Ticker   string
	Category ticker.Category
	// Failures holds one error per provider attempted, in chain order.
	Failures []error
}

func (e *NoPriceError) Error() string {
	if e.Category == ticker.Unknown {
		return fmt.Sprintf("invalid ticker %q", e.Ticker)
	}
	var b strings.Builder
	if len(e.Failures) == 0 {
		fmt.Fprintf(&b, "no provider available for %s", e.Ticker)
	} else {
		for i, f := range e.Failures {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(f.Error())
		}
	}
	if e.Category == ticker.USEquity {
		b.WriteString("; ")
		b.WriteString(usHint)
	}
	return b.String()
}

func (e *NoPriceError) Unwrap() []error {
	return append([]error{ErrNoPrice}, e.Failures...)
}
