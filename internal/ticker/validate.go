package ticker

import (
	"regexp"
	"slices"
	"strings"
)

var (
	usPattern            = regexp.MustCompile(`^[A-Z]{1,5}$`)
	usClassPattern       = regexp.MustCompile(`^[A-Z]{1,5}\.[A-Z]$`)
	brPattern            = regexp.MustCompile(`^[A-Z]{4}[0-9]{1,2}\.SA$`)
	cryptoPattern        = regexp.MustCompile(`^[A-Z]{2,10}-[A-Z]{3}$`)
	cryptoCompactPattern = regexp.MustCompile(`^[A-Z]{2,10}[A-Z]{3}$`)
	genericPattern       = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)
	invalidChars         = regexp.MustCompile(`[^\w.\-]`)
)

// Validation is the outcome of a format check. Type is one of "us", "br",
// "crypto", "unknown" or empty when undetectable.
type Validation struct {
	Valid  bool   `json:"valid"`
	Ticker string `json:"ticker"`
	Type   string `json:"type"`
	Error  string `json:"error"`

	// Suggestions lists example formats when the ticker is invalid.
	Suggestions []string `json:"suggestions"`
}

// Suggestions lists example formats shown next to an invalid ticker.
var Suggestions = []string{
	"US Stocks: AAPL, MSFT, GOOGL",
	"BR Stocks: PETR4.SA, VALE3.SA, ITUB4.SA",
	"Crypto: BTC-USD, ETH-USD, SOL-USD",
	"ETFs: SPY, QQQ, IVV",
}

// Validate checks the format of raw without any lookup. Unlike Parse it
// strips characters other than letters, digits, '.', '-' and '_'.
// A compact crypto form (letters followed by USD, BRL or EUR) is rewritten to
// BASE-CCY here, whether or not the base is a known symbol.
// An invalid result carries Suggestions.
func Validate(raw string) Validation {
	v := validate(raw)
	v.Suggestions = []string{}
	if !v.Valid {
		v.Suggestions = slices.Clone(Suggestions)
	}
	return v
}

func validate(raw string) Validation {
	if raw == "" {
		return Validation{Error: "empty ticker"}
	}
	s := invalidChars.ReplaceAllString(Normalize(raw), "")
	if s == "" {
		return Validation{Error: "ticker too short"}
	}
	if len(s) > MaxLength {
		return Validation{Error: "ticker too long"}
	}

	switch {
	case strings.HasSuffix(s, BRSuffix):
		if brPattern.MatchString(s) {
			return Validation{Valid: true, Ticker: s, Type: BREquity.String()}
		}
		return Validation{Ticker: s, Type: BREquity.String(), Error: "invalid BR format, use XXXX9.SA (e.g. PETR4.SA)"}
	case strings.Contains(s, "-"):
		if cryptoPattern.MatchString(s) {
			return Validation{Valid: true, Ticker: s, Type: Crypto.String()}
		}
		return Validation{Ticker: s, Type: Crypto.String(), Error: "invalid crypto format, use XXX-USD (e.g. BTC-USD)"}
	case cryptoCompactPattern.MatchString(s) && isQuoteCurrency(s[len(s)-3:]):
		return Validation{Valid: true, Ticker: s[:len(s)-3] + "-" + s[len(s)-3:], Type: Crypto.String()}
	case strings.Contains(s, "."):
		if usClassPattern.MatchString(s) {
			return Validation{Valid: true, Ticker: s, Type: USEquity.String()}
		}
		return Validation{Ticker: s, Type: USEquity.String(), Error: "invalid format"}
	case usPattern.MatchString(s):
		return Validation{Valid: true, Ticker: s, Type: USEquity.String()}
	case genericPattern.MatchString(s):
		return Validation{Valid: true, Ticker: s, Type: Unknown.String()}
	}
	return Validation{Ticker: s, Error: "unrecognized ticker format"}
}

func isQuoteCurrency(s string) bool {
	_, ok := quoteCurrencies[s]
	return ok
}
