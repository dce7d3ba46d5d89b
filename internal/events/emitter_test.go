package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/internal/config"
)

type recordingBus struct {
	events []Event
}

func (b *recordingBus) Send(_ context.Context, ev Event) error {
	b.events = append(b.events, ev)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishDropsOldestOnOverflow(t *testing.T) {
	cfg := &config.Config{}
	cfg.Events.BufferCapacity = 2
	e := New(cfg, nil, testLogger())

	e.Publish(context.Background(), "created", map[string]any{"n": 1})
	e.Publish(context.Background(), "created", map[string]any{"n": 2})
	e.Publish(context.Background(), "created", map[string]any{"n": 3})

	require.Equal(t, int64(1), e.Dropped())
	require.Len(t, e.queue, 2)
}

func TestStartFlushesQueuedEvents(t *testing.T) {
	cfg := &config.Config{}
	cfg.Events.BufferCapacity = 16
	bus := &recordingBus{}
	e := New(cfg, bus, testLogger())

	e.Publish(context.Background(), string(KindCreated), map[string]any{"id": "a"})
	e.Publish(context.Background(), string(KindUpdated), map[string]any{"id": "a"})

	e.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return e.Flushed() == 2 }, time.Second, 5*time.Millisecond)
	e.Stop()

	require.Len(t, bus.events, 2)
	require.Equal(t, string(KindCreated), bus.events[0].Kind)
	require.Equal(t, string(KindUpdated), bus.events[1].Kind)
}
