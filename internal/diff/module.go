package diff

import (
	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/schema"
)

// Module provides the diff Engine to the fx graph.
var Module = fx.Module("diff",
	fx.Provide(func(store *graphstore.Store, branches *branchreg.Registry, schemas *schema.Cache) *Engine {
		return New(store, branches, schemas)
	}),
)
