package domain

import (
	"errors"
	"testing"
)

func TestParseCodeCanonicalizes(t *testing.T) {
	t.Parallel()

	code, err := ParseCode("  btc ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "BTC" {
		t.Fatalf("expected BTC, got %s", code)
	}
}

func TestParseCodeRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := ParseCode("   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParseCodeRejectsUnknown(t *testing.T) {
	t.Parallel()

	if _, err := ParseCode("WAT"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestPrecisionDefaults(t *testing.T) {
	t.Parallel()

	if got := Currencies["BTC"].Precision; got != 8 {
		t.Fatalf("crypto precision should default to 8, got %d", got)
	}
	if got := Currencies["USD"].Precision; got != 2 {
		t.Fatalf("fiat precision should default to 2, got %d", got)
	}
}

func TestCoinGeckoMappingsAgree(t *testing.T) {
	t.Parallel()

	for _, code := range CryptoCodes {
		id, ok := CoinGeckoID[code]
		if !ok {
			t.Fatalf("missing CoinGecko id for %s", code)
		}
		if CoinGeckoIDToCode[id] != code {
			t.Fatalf("reverse mapping broken for %s", code)
		}
		if Currencies[code].Kind != KindCrypto {
			t.Fatalf("%s should be registered as crypto", code)
		}
	}
	for _, code := range FiatCodes {
		if Currencies[code].Kind != KindFiat {
			t.Fatalf("%s should be registered as fiat", code)
		}
	}
}
