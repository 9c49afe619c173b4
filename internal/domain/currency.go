package domain

import (
	"fmt"
	"strings"
)

// CurrencyKind distinguishes crypto assets from fiat currencies.
type CurrencyKind string

const (
	KindCrypto CurrencyKind = "crypto"
	KindFiat   CurrencyKind = "fiat"
)

// Code is a canonical, uppercased currency code ("BTC", "USD").
// Codes are validated against the registry at parse time, so the rest of
// the system never sees an unknown currency.
type Code string

// ParseCode canonicalizes raw input and rejects codes missing from the registry.
func ParseCode(raw string) (Code, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty currency code", ErrValidation)
	}
	code := Code(trimmed)
	if _, ok := Currencies[code]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCurrency, trimmed)
	}
	return code, nil
}

// Currency describes a supported crypto asset or fiat currency.
type Currency struct {
	Code      Code         `json:"code"`
	Name      string       `json:"name"`
	Symbol    string       `json:"symbol"`
	Kind      CurrencyKind `json:"kind"`
	Precision int          `json:"precision"`
}

const (
	cryptoPrecision = 8
	fiatPrecision   = 2
)

func crypto(code Code, name, symbol string) Currency {
	return Currency{Code: code, Name: name, Symbol: symbol, Kind: KindCrypto, Precision: cryptoPrecision}
}

func fiat(code Code, name, symbol string) Currency {
	return Currency{Code: code, Name: name, Symbol: symbol, Kind: KindFiat, Precision: fiatPrecision}
}

// Currencies is the registry of everything the service can quote or convert.
var Currencies = map[Code]Currency{
	"BTC":   crypto("BTC", "Bitcoin", "₿"),
	"ETH":   crypto("ETH", "Ethereum", "Ξ"),
	"SOL":   crypto("SOL", "Solana", "SOL"),
	"XRP":   crypto("XRP", "XRP", "XRP"),
	"ADA":   crypto("ADA", "Cardano", "ADA"),
	"DOGE":  crypto("DOGE", "Dogecoin", "Ð"),
	"DOT":   crypto("DOT", "Polkadot", "DOT"),
	"AVAX":  crypto("AVAX", "Avalanche", "AVAX"),
	"LINK":  crypto("LINK", "Chainlink", "LINK"),
	"MATIC": crypto("MATIC", "Polygon", "MATIC"),
	"USD":   fiat("USD", "US Dollar", "$"),
	"EUR":   fiat("EUR", "Euro", "€"),
	"GBP":   fiat("GBP", "Pound Sterling", "£"),
	"JPY":   fiat("JPY", "Japanese Yen", "¥"),
	"INR":   fiat("INR", "Indian Rupee", "₹"),
	"CAD":   fiat("CAD", "Canadian Dollar", "C$"),
}

// CoinGeckoID maps crypto codes to CoinGecko API identifiers.
var CoinGeckoID = map[Code]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
}

// CoinGeckoIDToCode is the reverse mapping.
var CoinGeckoIDToCode map[string]Code

func init() {
	CoinGeckoIDToCode = make(map[string]Code, len(CoinGeckoID))
	for code, id := range CoinGeckoID {
		CoinGeckoIDToCode[id] = code
	}
}

// CryptoCodes lists supported crypto codes in stable order.
var CryptoCodes = []Code{
	"BTC", "ETH", "SOL", "XRP", "ADA",
	"DOGE", "DOT", "AVAX", "LINK", "MATIC",
}

// FiatCodes lists supported fiat quote currencies in stable order.
var FiatCodes = []Code{"USD", "EUR", "GBP", "JPY", "INR", "CAD"}

// SupportedCodes returns every registered code, cryptos first.
func SupportedCodes() []Code {
	out := make([]Code, 0, len(CryptoCodes)+len(FiatCodes))
	out = append(out, CryptoCodes...)
	out = append(out, FiatCodes...)
	return out
}
