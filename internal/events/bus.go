package events

import (
	"context"
	"log/slog"

	"github.com/branchgraph/branchgraph/pkg/logger"
)

// LogBus is a Bus that logs events instead of forwarding them to a real
// message bus — the external bus is out of scope (spec §1), so this is the
// default wiring until a real adapter (e.g. an AMQP/Kafka producer from the
// rest of the stack) is configured.
type LogBus struct {
	log *slog.Logger
}

// NewLogBus builds a LogBus.
func NewLogBus(log *slog.Logger) *LogBus {
	return &LogBus{log: log.With(logger.Scope("events.logbus"))}
}

// Send implements Bus.
func (b *LogBus) Send(_ context.Context, ev Event) error {
	b.log.Info("event", slog.String("kind", ev.Kind), slog.Any("payload", ev.Payload))
	return nil
}
