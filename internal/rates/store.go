package rates

import (
	"fmt"
	"sync"
	"time"

	"pocket-change/internal/domain"

	"github.com/shopspring/decimal"
)

// inverseScale is the decimal precision used when deriving 1/rate.
const inverseScale = 16

// Store holds the current exchange-rate table.
//
// Rate convention: a stored rate r for (from, to) means 1 from = r to, so
// conversion multiplies by r and the inverse fallback divides by it.
//
// Lookup order when resolving (from, to): the direct rate, then the inverse
// of (to, from), then a bridge through the configured base currency when
// both legs resolve. The table is replaced wholesale on each refresh;
// individual SetRate calls exist for manual overrides.
type Store struct {
	mu        sync.RWMutex
	base      domain.Code
	rates     map[domain.Pair]decimal.Decimal
	updatedAt time.Time
}

// NewStore creates an empty store bridging through base (typically USD).
func NewStore(base domain.Code) *Store {
	return &Store{
		base:  base,
		rates: make(map[domain.Pair]decimal.Decimal),
	}
}

func validateRate(from, to domain.Code, rate decimal.Decimal) error {
	if _, ok := domain.Currencies[from]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, from)
	}
	if _, ok := domain.Currencies[to]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, to)
	}
	if from == to {
		return fmt.Errorf("%w: identical pair %s/%s", domain.ErrValidation, from, to)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("%w: rate for %s/%s must be positive, got %s", domain.ErrValidation, from, to, rate)
	}
	return nil
}

// SetRate records a single rate. Invalid input leaves the store unchanged.
func (s *Store) SetRate(from, to domain.Code, rate decimal.Decimal) error {
	if err := validateRate(from, to, rate); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[domain.Pair{From: from, To: to}] = rate
	s.updatedAt = time.Now()
	return nil
}

// Replace swaps in a whole new table. The incoming table is validated
// first; any invalid entry rejects the whole update and the current
// contents stay in place.
func (s *Store) Replace(table domain.RateTable, at time.Time) error {
	next := make(map[domain.Pair]decimal.Decimal)
	for from, inner := range table {
		for to, rate := range inner {
			if err := validateRate(from, to, rate); err != nil {
				return err
			}
			next[domain.Pair{From: from, To: to}] = rate
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = next
	s.updatedAt = at
	return nil
}

// Rate resolves a single rate following the documented lookup order.
func (s *Store) Rate(from, to domain.Code) (decimal.Decimal, error) {
	rate, _, err := s.Resolve(from, to)
	return rate, err
}

// Resolve returns the rate and which path produced it.
func (s *Store) Resolve(from, to domain.Code) (decimal.Decimal, domain.ResolutionPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(from, to)
}

func (s *Store) resolveLocked(from, to domain.Code) (decimal.Decimal, domain.ResolutionPath, error) {
	if rate, ok := s.rates[domain.Pair{From: from, To: to}]; ok {
		return rate, domain.PathDirect, nil
	}
	if rate, ok := s.rates[domain.Pair{From: to, To: from}]; ok {
		return decimal.NewFromInt(1).DivRound(rate, inverseScale), domain.PathInverse, nil
	}
	if from != s.base && to != s.base {
		left, _, errLeft := s.resolveLegLocked(from, s.base)
		right, _, errRight := s.resolveLegLocked(s.base, to)
		if errLeft == nil && errRight == nil {
			return left.Mul(right), domain.PathBridge, nil
		}
	}
	return decimal.Decimal{}, "", fmt.Errorf("%w: %s/%s", domain.ErrRateUnavailable, from, to)
}

// resolveLegLocked resolves a bridge leg using direct and inverse lookups
// only, so bridging never recurses.
func (s *Store) resolveLegLocked(from, to domain.Code) (decimal.Decimal, domain.ResolutionPath, error) {
	if rate, ok := s.rates[domain.Pair{From: from, To: to}]; ok {
		return rate, domain.PathDirect, nil
	}
	if rate, ok := s.rates[domain.Pair{From: to, To: from}]; ok {
		return decimal.NewFromInt(1).DivRound(rate, inverseScale), domain.PathInverse, nil
	}
	return decimal.Decimal{}, "", fmt.Errorf("%w: %s/%s", domain.ErrRateUnavailable, from, to)
}

// All returns a copy of the stored table in nested form.
func (s *Store) All() domain.RateTable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := make(domain.RateTable, len(s.rates))
	for pair, rate := range s.rates {
		table.Set(pair.From, pair.To, rate)
	}
	return table
}

// Snapshot returns the current contents plus the last-updated timestamp.
func (s *Store) Snapshot() domain.RatesSnapshot {
	s.mu.RLock()
	at := s.updatedAt
	s.mu.RUnlock()
	return domain.RatesSnapshot{Rates: s.All(), UpdatedAt: at}
}

// Len reports how many rates are stored directly.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rates)
}
