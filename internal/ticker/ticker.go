package ticker

import (
	"strings"
)

// Category is the instrument bucket a ticker is priced under.
type Category int

const (
	Unknown Category = iota
	USEquity
	BREquity
	Crypto
)

func (c Category) String() string {
	switch c {
	case USEquity:
		return "us"
	case BREquity:
		return "br"
	case Crypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// MaxLength is the longest raw ticker accepted after trimming.
const MaxLength = 20

// BRSuffix marks a B3 listed equity.
const BRSuffix = ".SA"

// DefaultCurrency is the quote currency used for crypto when none is encoded.
const DefaultCurrency = "USD"

// quoteCurrencies are the crypto quote currencies encoded in tickers.
var quoteCurrencies = map[string]struct{}{
	"USD": {},
	"BRL": {},
	"EUR": {},
}

// cryptoIDs maps known crypto symbols to their CoinGecko ids.
var cryptoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"SHIB":  "shiba-inu",
	"LTC":   "litecoin",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"XLM":   "stellar",
	"ALGO":  "algorand",
	"VET":   "vechain",
	"FIL":   "filecoin",
	"NEAR":  "near",
}

// CoinID returns the CoinGecko id of a known crypto symbol.
func CoinID(base string) (string, bool) {
	id, ok := cryptoIDs[strings.ToUpper(base)]
	return id, ok
}

// Ticker is a classified, normalized ticker.
// Base and Currency are set for crypto only; Base is the symbol without the
// country suffix for BR equities.
type Ticker struct {
	Symbol   string
	Category Category
	Base     string
	Currency string
}

// Classify normalizes raw and returns its canonical form and category.
func Classify(raw string) (string, Category) {
	t := Parse(raw)
	return t.Symbol, t.Category
}

// Parse normalizes and classifies raw. Compact crypto forms such as BTCUSD
// are rewritten to BTC-USD.
func Parse(raw string) Ticker {
	s := Normalize(raw)
	if s == "" || len(s) > MaxLength {
		return Ticker{Symbol: s, Category: Unknown}
	}

	if strings.HasSuffix(s, BRSuffix) {
		return Ticker{Symbol: s, Category: BREquity, Base: strings.TrimSuffix(s, BRSuffix)}
	}

	if base, ccy, ok := strings.Cut(s, "-"); ok {
		_, knownCcy := quoteCurrencies[ccy]
		_, knownBase := cryptoIDs[base]
		if knownCcy && knownBase {
			return Ticker{Symbol: s, Category: Crypto, Base: base, Currency: ccy}
		}
		return Ticker{Symbol: s, Category: USEquity}
	}

	if _, ok := cryptoIDs[s]; ok {
		return Ticker{Symbol: s, Category: Crypto, Base: s, Currency: DefaultCurrency}
	}

	if len(s) > 3 {
		base, ccy := s[:len(s)-3], s[len(s)-3:]
		_, knownCcy := quoteCurrencies[ccy]
		_, knownBase := cryptoIDs[base]
		if knownCcy && knownBase {
			return Ticker{Symbol: base + "-" + ccy, Category: Crypto, Base: base, Currency: ccy}
		}
	}

	return Ticker{Symbol: s, Category: USEquity}
}

// Normalize trims whitespace and uppercases.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
