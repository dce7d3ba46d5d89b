// Package metrics provides shared OTel instrument accessors for the core,
// mirroring pkg/tracing's global-otel-API wrapper: callers use these
// accessors instead of creating their own meter/instruments, so every
// package's counters attach to whatever MeterProvider internal/observability
// installed (or the no-op default in tests).
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "branchgraph"

var (
	once          sync.Once
	eventsDropped metric.Int64Counter
	storeLatency  metric.Float64Histogram
	retriedErrors metric.Int64Counter
)

func instruments() {
	meter := otel.Meter(meterName)
	eventsDropped, _ = meter.Int64Counter("branchgraph.events.dropped")
	storeLatency, _ = meter.Float64Histogram("branchgraph.graphstore.op_latency_ms", metric.WithUnit("ms"))
	retriedErrors, _ = meter.Int64Counter("branchgraph.errors.retried")
}

// EventDropped increments the event-buffer overflow counter (spec §4.8).
func EventDropped(ctx context.Context) {
	once.Do(instruments)
	eventsDropped.Add(ctx, 1)
}

// StoreOpLatency records a graph-store operation's wall-clock duration
// (spec §5's concurrency budget is measured against this histogram).
func StoreOpLatency(ctx context.Context, op string, since time.Time) {
	once.Do(instruments)
	storeLatency.Record(ctx, float64(time.Since(since).Microseconds())/1000.0,
		metric.WithAttributes(attribute.String("op", op)))
}

// ErrorRetried increments the retried-transient/conflict-error counter
// (spec §7).
func ErrorRetried(ctx context.Context) {
	once.Do(instruments)
	retriedErrors.Add(ctx, 1)
}
