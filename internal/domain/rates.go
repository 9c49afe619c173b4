package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pair identifies a directed currency pair.
type Pair struct {
	From Code `json:"from"`
	To   Code `json:"to"`
}

// RateTable is a nested from→to→rate mapping. It is the wire and persistence
// shape of the rate store's contents.
type RateTable map[Code]map[Code]decimal.Decimal

// Set inserts a rate, allocating the inner map as needed.
func (t RateTable) Set(from, to Code, rate decimal.Decimal) {
	inner, ok := t[from]
	if !ok {
		inner = make(map[Code]decimal.Decimal)
		t[from] = inner
	}
	inner[to] = rate
}

// RatesSnapshot is the rate store's contents at a point in time. It is
// replaced wholesale on each successful refresh and read-only in between.
type RatesSnapshot struct {
	Rates     RateTable `json:"rates"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatePoint is one archived rate observation.
type RatePoint struct {
	From      Code            `json:"from"`
	To        Code            `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ResolutionPath records how a rate was resolved.
type ResolutionPath string

const (
	PathDirect  ResolutionPath = "direct"
	PathInverse ResolutionPath = "inverse"
	PathBridge  ResolutionPath = "bridge"
)

// Conversion is the result of converting an amount between two currencies.
type Conversion struct {
	Amount decimal.Decimal `json:"amount"`
	From   Code            `json:"from"`
	To     Code            `json:"to"`
	Result decimal.Decimal `json:"result"`
	Rate   decimal.Decimal `json:"rate"`
	Path   ResolutionPath  `json:"path"`
	At     time.Time       `json:"at"`
}
