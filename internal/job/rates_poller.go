package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// RatesPoller periodically refreshes the rate snapshot so reads mostly hit
// warm state instead of waiting on the upstream API.
type RatesPoller struct {
	tracer       trace.Tracer
	rates        RatesRefresher
	pollInterval time.Duration
}

type RatesRefresher interface {
	Refresh(ctx context.Context) error
}

func NewRatesPoller(tracer trace.Tracer, rates RatesRefresher, pollIntervalSecs int) *RatesPoller {
	return &RatesPoller{
		tracer:       tracer,
		rates:        rates,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start launches the background polling loop. Blocks until ctx is cancelled.
func (p *RatesPoller) Start(ctx context.Context) {
	log.Println("Rates poller starting...")

	go p.pollLoop(ctx, "rates-refresh", p.pollInterval, p.rates.Refresh)

	<-ctx.Done()
	log.Println("Rates poller stopped")
}

func (p *RatesPoller) pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	// Run immediately on start
	if err := fn(ctx); err != nil {
		log.Printf("poller %s initial run error: %v", name, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("poller %s error: %v", name, err)
			}
		}
	}
}
