package graphstore

import (
	"github.com/uptrace/bun"
	"go.uber.org/fx"
)

// Module provides the graph Store to the fx graph.
var Module = fx.Module("graphstore",
	fx.Provide(func(db bun.IDB) *Store { return NewStore(db) }),
)
