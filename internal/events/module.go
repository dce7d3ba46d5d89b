package events

import (
	"context"

	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/config"
	"github.com/branchgraph/branchgraph/internal/merge"
)

// Module provides the Event Emitter, its default log-backed Bus, and binds
// the Emitter into merge.Publisher so the Merge Engine can publish
// branch.merged without importing this package's concrete type.
var Module = fx.Module("events",
	fx.Provide(
		NewLogBus,
		func(b *LogBus) Bus { return b },
		New,
		func(e *Emitter) merge.Publisher { return e },
	),
	fx.Invoke(func(lc fx.Lifecycle, e *Emitter, cfg *config.Config) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				e.Start(context.Background(), cfg.Events.FlushInterval)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				e.Stop()
				return nil
			},
		})
	}),
)
