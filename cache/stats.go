package cache

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stats counters since start
type Stats struct {
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
	Stale          int64 `json:"stale"`
	Forced         int64 `json:"forced"`
	Empty          int64 `json:"empty"`
	ProducerErrors int64 `json:"producer_errors"`
	StoreErrors    int64 `json:"store_errors"`
	Shared         int64 `json:"shared"`
}

// outcome of one GetOrCompute lookup
type outcome string

const (
	outcomeHit      outcome = "hit"
	outcomeMiss     outcome = "miss"
	outcomeStale    outcome = "stale"
	outcomeForced   outcome = "forced"
	outcomeEmpty    outcome = "empty"
	outcomeProdErr  outcome = "producer_error"
	outcomeStoreErr outcome = "store_error"
	outcomeShared   outcome = "shared"
)

type counters struct {
	hits, misses, stale, forced, empty, producerErrs, storeErrs, shared atomic.Int64

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func newCounters(meter metric.Meter) *counters {
	c := &counters{}
	if meter == nil {
		return c
	}
	// Instrument creation only fails on invalid names; fall back to atomics alone
	c.requests, _ = meter.Int64Counter("tickerdesk.cache.requests",
		metric.WithDescription("GetOrCompute outcomes by artifact kind"))
	c.latency, _ = meter.Float64Histogram("tickerdesk.cache.producer.duration",
		metric.WithDescription("Producer execution time"),
		metric.WithUnit("s"))
	return c
}

func (c *counters) record(ctx context.Context, kind string, o outcome) {
	switch o {
	case outcomeHit:
		c.hits.Add(1)
	case outcomeMiss:
		c.misses.Add(1)
	case outcomeStale:
		c.stale.Add(1)
	case outcomeForced:
		c.forced.Add(1)
	case outcomeEmpty:
		c.empty.Add(1)
	case outcomeProdErr:
		c.producerErrs.Add(1)
	case outcomeStoreErr:
		c.storeErrs.Add(1)
	case outcomeShared:
		c.shared.Add(1)
	}
	if c.requests != nil {
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", string(o)),
		))
	}
}

func (c *counters) observe(ctx context.Context, kind string, seconds float64, failed bool) {
	if c.latency != nil {
		c.latency.Record(ctx, seconds, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.Bool("failed", failed),
		))
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Stale:          c.stale.Load(),
		Forced:         c.forced.Load(),
		Empty:          c.empty.Load(),
		ProducerErrors: c.producerErrs.Load(),
		StoreErrors:    c.storeErrs.Load(),
		Shared:         c.shared.Load(),
	}
}
