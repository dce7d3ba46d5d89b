package schema

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/config"
)

// Module provides the Schema Cache and its file watcher, loading the
// descriptor once at startup and tearing the watcher down at shutdown.
var Module = fx.Module("schema",
	fx.Provide(func(cfg *config.Config) *Cache { return NewCache(cfg.Schema.DescriptorPath) }),
	fx.Invoke(func(lc fx.Lifecycle, cache *Cache, log *slog.Logger) error {
		var watcher *Watcher
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := cache.Load(ctx); err != nil {
					return err
				}
				w, err := NewWatcher(cache, log)
				if err != nil {
					return err
				}
				watcher = w
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if watcher != nil {
					return watcher.Close()
				}
				return nil
			},
		})
		return nil
	}),
)
