// Package events implements the Event Emitter (spec §4.8): a write-behind
// bounded queue publishing data-change notifications to an external bus.
// Grounded on the teacher's outbox-style background dispatcher pattern
// (internal/app lifecycle-managed goroutine with a buffered channel and a
// graceful-drain Stop), generalised to a generic event envelope instead of
// a fixed set of domain event types.
package events

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/branchgraph/branchgraph/internal/config"
	"github.com/branchgraph/branchgraph/pkg/logger"
	"github.com/branchgraph/branchgraph/pkg/metrics"
)

// Kind enumerates the event kinds named in spec §4.8.
type Kind string

const (
	KindCreated      Kind = "created"
	KindUpdated      Kind = "updated"
	KindDeleted      Kind = "deleted"
	KindBranchMerged Kind = "branch.merged"
)

// Event is one published notification.
type Event struct {
	Kind      string
	Payload   map[string]any
	EntityKey string // used only to document per-entity FIFO intent; the
	// queue itself is a single FIFO channel, so ordering across all events
	// is already FIFO — EntityKey exists for subscribers that want to
	// shard by entity downstream.
	At time.Time
}

// Bus is the external subscriber interface the emitter flushes to (the
// message bus named in spec §1's Out-of-scope list).
type Bus interface {
	Send(ctx context.Context, ev Event) error
}

// Emitter is the Event Emitter: publish() enqueues, a background goroutine
// flushes to Bus. On overflow the oldest buffered event is dropped and a
// counter is incremented (surfaced via observability).
type Emitter struct {
	bus   Bus
	log   *slog.Logger
	queue chan Event

	dropped  atomic.Int64
	flushed  atomic.Int64
	stopping chan struct{}
	stopped  chan struct{}
}

// New builds an Emitter with the configured buffer capacity. Call Start to
// begin the background flush loop and Stop to drain it.
func New(cfg *config.Config, bus Bus, log *slog.Logger) *Emitter {
	return &Emitter{
		bus:      bus,
		log:      log.With(logger.Scope("events")),
		queue:    make(chan Event, cfg.Events.BufferCapacity),
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Publish enqueues an event. If the buffer is full, the oldest event is
// dropped to make room — publish never blocks the caller (spec §4.8).
func (e *Emitter) Publish(ctx context.Context, kind string, payload map[string]any) {
	ev := Event{Kind: kind, Payload: payload, At: time.Now()}
	select {
	case e.queue <- ev:
		return
	default:
	}
	// Buffer full: drop the oldest, then try again.
	select {
	case <-e.queue:
		e.dropped.Add(1)
		metrics.EventDropped(ctx)
	default:
	}
	select {
	case e.queue <- ev:
	default:
		e.dropped.Add(1)
		metrics.EventDropped(ctx)
	}
}

// Dropped returns the overflow-drop counter.
func (e *Emitter) Dropped() int64 { return e.dropped.Load() }

// Flushed returns the count of events successfully sent to the bus.
func (e *Emitter) Flushed() int64 { return e.flushed.Load() }

// Start begins the background flush loop: each queued event is sent as soon
// as the loop dequeues it, and every flushInterval the loop also drains
// whatever is still pending.
func (e *Emitter) Start(ctx context.Context, flushInterval time.Duration) {
	go e.run(ctx, flushInterval)
}

func (e *Emitter) run(ctx context.Context, flushInterval time.Duration) {
	defer close(e.stopped)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-e.queue:
			e.send(ctx, ev)
		case <-ticker.C:
			e.drainPending(ctx)
		case <-e.stopping:
			e.drainPending(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (e *Emitter) drainPending(ctx context.Context) {
	for {
		select {
		case ev := <-e.queue:
			e.send(ctx, ev)
		default:
			return
		}
	}
}

func (e *Emitter) send(ctx context.Context, ev Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Send(ctx, ev); err != nil {
		e.log.Error("event dispatch failed", logger.Error(err), slog.String("kind", ev.Kind))
		return
	}
	e.flushed.Add(1)
}

// Stop signals the flush loop to drain remaining events and exit.
func (e *Emitter) Stop() {
	close(e.stopping)
	<-e.stopped
}
