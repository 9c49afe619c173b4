package rates

import (
	"fmt"
	"time"

	"pocket-change/internal/domain"

	"github.com/shopspring/decimal"
)

// Converter computes conversions against a Store.
type Converter struct {
	store *Store
}

func NewConverter(store *Store) *Converter {
	return &Converter{store: store}
}

// Convert validates the amount, resolves the rate, and multiplies.
// Identity conversions (from == to) skip the store entirely so they are
// exact even when no rate is loaded. The amount must be non-negative.
func (c *Converter) Convert(amount decimal.Decimal, from, to domain.Code) (domain.Conversion, error) {
	if amount.IsNegative() {
		return domain.Conversion{}, fmt.Errorf("%w: amount must be non-negative, got %s", domain.ErrValidation, amount)
	}
	if _, ok := domain.Currencies[from]; !ok {
		return domain.Conversion{}, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, from)
	}
	if _, ok := domain.Currencies[to]; !ok {
		return domain.Conversion{}, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, to)
	}

	if from == to {
		return domain.Conversion{
			Amount: amount,
			From:   from,
			To:     to,
			Result: amount,
			Rate:   decimal.NewFromInt(1),
			Path:   domain.PathDirect,
			At:     time.Now().UTC(),
		}, nil
	}

	rate, path, err := c.store.Resolve(from, to)
	if err != nil {
		return domain.Conversion{}, err
	}

	return domain.Conversion{
		Amount: amount,
		From:   from,
		To:     to,
		Result: amount.Mul(rate),
		Rate:   rate,
		Path:   path,
		At:     time.Now().UTC(),
	}, nil
}
