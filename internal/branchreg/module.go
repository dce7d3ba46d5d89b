package branchreg

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
)

// Module provides the Branch Registry to the fx graph and primes its
// snapshot once at startup.
var Module = fx.Module("branchreg",
	fx.Provide(func(db bun.IDB) *Store { return NewStore(db) }),
	fx.Provide(NewRegistry),
	fx.Invoke(func(lc fx.Lifecycle, r *Registry) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return r.Refresh(ctx)
			},
		})
	}),
)
