package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"pocket-change/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// CoinGeckoProvider fetches crypto→fiat exchange rates from the CoinGecko
// free API. Outbound calls are rate limited, time boxed, and retried with
// exponential backoff for transient failures only: connection errors and
// 5xx responses. 4xx responses fail immediately.
type CoinGeckoProvider struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	limiter     *RateLimiter
	maxAttempts int
	backoffBase time.Duration
}

// NewCoinGeckoProvider creates a provider with built-in rate limiting
// (8 requests per minute, one token every 7.5 seconds) and the given
// per-request timeout and retry cap.
func NewCoinGeckoProvider(tracer trace.Tracer, timeout time.Duration, maxAttempts int) *CoinGeckoProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &CoinGeckoProvider{
		client:      &http.Client{Timeout: timeout},
		baseURL:     coingeckoBaseURL,
		tracer:      tracer,
		limiter:     NewRateLimiter(8, 7500*time.Millisecond),
		maxAttempts: maxAttempts,
		backoffBase: defaultBackoffBase,
	}
}

// FetchRates fetches current rates for every supported crypto against every
// supported fiat quote currency in a single API call.
func (p *CoinGeckoProvider) FetchRates(ctx context.Context) (domain.RateTable, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-rates")
	defer span.End()

	ids := make([]string, 0, len(domain.CryptoCodes))
	for _, code := range domain.CryptoCodes {
		ids = append(ids, domain.CoinGeckoID[code])
	}
	quotes := make([]string, 0, len(domain.FiatCodes))
	for _, code := range domain.FiatCodes {
		quotes = append(quotes, strings.ToLower(string(code)))
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		p.baseURL, strings.Join(ids, ","), strings.Join(quotes, ","))

	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}

	// Response shape: {"bitcoin": {"usd": 97000, "eur": 89000, ...}, ...}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}

	table := make(domain.RateTable, len(raw))
	for cgID, byFiat := range raw {
		crypto, ok := domain.CoinGeckoIDToCode[cgID]
		if !ok {
			continue
		}
		for quote, value := range byFiat {
			fiat := domain.Code(strings.ToUpper(quote))
			if _, ok := domain.Currencies[fiat]; !ok {
				continue
			}
			if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
				log.Printf("dropping bad quote %s/%s: %v", crypto, fiat, value)
				continue
			}
			table.Set(crypto, fiat, decimal.NewFromFloat(value))
		}
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("fetch rates: empty response")
	}
	return table, nil
}

// doRequest performs one logical request with the retry policy applied.
func (p *CoinGeckoProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var lastErr error
	delay := p.backoffBase

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, retryable, err := p.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		log.Printf("coingecko attempt %d/%d failed: %v", attempt, p.maxAttempts, err)
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (p *CoinGeckoProvider) attempt(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// Connection failures and timeouts are transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, true, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(raw))
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
