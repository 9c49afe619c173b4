package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"pocket-change/internal/cache"
	"pocket-change/internal/domain"
	"pocket-change/internal/rates"
	"pocket-change/internal/records"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

// ratesCacheKey holds the serialized last-known snapshot.
const ratesCacheKey = "rates:current"

// RateProvider fetches a fresh rate table from the upstream API.
type RateProvider interface {
	FetchRates(ctx context.Context) (domain.RateTable, error)
}

// SnapshotArchive persists refreshed snapshots for historical queries.
type SnapshotArchive interface {
	SaveSnapshot(ctx context.Context, snapshot domain.RatesSnapshot) error
	RecentRates(ctx context.Context, from, to domain.Code, limit int) ([]domain.RatePoint, error)
}

// RatesService orchestrates the provider, rate store, cache, archive, and
// the history/audit logs.
//
// Reads follow stale-while-revalidate: a fresh cache entry serves directly,
// a stale one is served while a background refresh runs, and an empty store
// with no cached state forces a synchronous fetch.
type RatesService struct {
	tracer     trace.Tracer
	provider   RateProvider
	store      *rates.Store
	converter  *rates.Converter
	cache      *cache.Cache
	archive    SnapshotArchive
	history    *records.Log
	audit      *records.Log
	cacheTTL   time.Duration
	refreshing atomic.Bool
}

func NewRatesService(
	tracer trace.Tracer,
	provider RateProvider,
	store *rates.Store,
	cacheLayer *cache.Cache,
	archive SnapshotArchive,
	history *records.Log,
	audit *records.Log,
	cacheTTL time.Duration,
) *RatesService {
	return &RatesService{
		tracer:    tracer,
		provider:  provider,
		store:     store,
		converter: rates.NewConverter(store),
		cache:     cacheLayer,
		archive:   archive,
		history:   history,
		audit:     audit,
		cacheTTL:  cacheTTL,
	}
}

// CurrentRates returns the current snapshot, refreshing per the
// stale-while-revalidate policy.
func (s *RatesService) CurrentRates(ctx context.Context) (domain.RatesSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "rates-service.current-rates")
	defer span.End()

	value, fresh, ok := s.cache.Get(ctx, ratesCacheKey)
	if ok && s.store.Len() == 0 {
		s.warmStore(value)
	}

	if s.store.Len() > 0 {
		if !fresh {
			s.revalidate()
		}
		return s.store.Snapshot(), nil
	}

	if err := s.Refresh(ctx); err != nil {
		return domain.RatesSnapshot{}, err
	}
	return s.store.Snapshot(), nil
}

// Refresh fetches upstream rates and replaces the store wholesale, then
// updates the cache entry and archives the snapshot.
func (s *RatesService) Refresh(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "rates-service.refresh")
	defer span.End()

	table, err := s.provider.FetchRates(ctx)
	if err != nil {
		return fmt.Errorf("refresh rates: %w", err)
	}

	if err := s.store.Replace(table, time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh rates: %w", err)
	}

	snapshot := s.store.Snapshot()
	if data, err := json.Marshal(snapshot); err == nil {
		s.cache.Set(ctx, ratesCacheKey, data, s.cacheTTL)
	} else {
		log.Printf("snapshot encode error: %v", err)
	}

	if s.archive != nil {
		if err := s.archive.SaveSnapshot(ctx, snapshot); err != nil {
			log.Printf("snapshot archive error: %v", err)
		}
	}

	log.Printf("Refreshed rates for %d assets", len(snapshot.Rates))
	return nil
}

// ResolveRate returns the rate for a pair, loading rates first when the
// store is empty.
func (s *RatesService) ResolveRate(ctx context.Context, from, to domain.Code) (decimal.Decimal, domain.ResolutionPath, error) {
	ctx, span := s.tracer.Start(ctx, "rates-service.resolve-rate")
	defer span.End()

	if err := s.ensureLoaded(ctx); err != nil {
		return decimal.Decimal{}, "", err
	}
	return s.store.Resolve(from, to)
}

// Convert performs a conversion and appends it to the history log. Fallback
// resolutions (inverse or bridged) additionally get an audit record, since
// those are derived rather than quoted rates.
func (s *RatesService) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Code) (domain.Conversion, error) {
	ctx, span := s.tracer.Start(ctx, "rates-service.convert")
	defer span.End()

	if from != to {
		if err := s.ensureLoaded(ctx); err != nil {
			return domain.Conversion{}, err
		}
	}

	conv, err := s.converter.Convert(amount, from, to)
	if err != nil {
		return domain.Conversion{}, err
	}

	if s.history != nil {
		if payload, err := json.Marshal(conv); err == nil {
			if _, err := s.history.Add(ctx, payload); err != nil {
				log.Printf("history persist error: %v", err)
			}
		}
	}

	if s.audit != nil && conv.Path != domain.PathDirect {
		event := map[string]any{
			"event": "derived_rate",
			"from":  conv.From,
			"to":    conv.To,
			"path":  conv.Path,
			"rate":  conv.Rate,
		}
		if payload, err := json.Marshal(event); err == nil {
			if _, err := s.audit.Add(ctx, payload); err != nil {
				log.Printf("audit persist error: %v", err)
			}
		}
	}

	return conv, nil
}

// RateHistory returns archived observations for a pair, newest first. An
// absent archive degrades to an empty result.
func (s *RatesService) RateHistory(ctx context.Context, from, to domain.Code, limit int) ([]domain.RatePoint, error) {
	ctx, span := s.tracer.Start(ctx, "rates-service.rate-history")
	defer span.End()

	if s.archive == nil {
		return nil, nil
	}
	return s.archive.RecentRates(ctx, from, to, limit)
}

func (s *RatesService) ensureLoaded(ctx context.Context) error {
	if s.store.Len() > 0 {
		return nil
	}
	_, err := s.CurrentRates(ctx)
	return err
}

// warmStore loads a cached snapshot into an empty store, typically after a
// restart. Decode failures are ignored; the next refresh overwrites them.
func (s *RatesService) warmStore(value json.RawMessage) {
	var snapshot domain.RatesSnapshot
	if err := json.Unmarshal(value, &snapshot); err != nil {
		log.Printf("cached snapshot decode error: %v", err)
		return
	}
	if err := s.store.Replace(snapshot.Rates, snapshot.UpdatedAt); err != nil {
		log.Printf("cached snapshot rejected: %v", err)
	}
}

// revalidate kicks off at most one background refresh at a time.
func (s *RatesService) revalidate() {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.refreshing.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			log.Printf("background refresh error: %v", err)
		}
	}()
}
