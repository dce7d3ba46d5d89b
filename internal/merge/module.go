package merge

import (
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/schema"
)

// Module provides the Merge Engine and wires it as the Branch Registry's
// ConflictChecker (breaking what would otherwise be a branchreg<->merge
// import cycle, per branchreg.ConflictChecker's doc comment).
var Module = fx.Module("merge",
	fx.Provide(func(db bun.IDB, store *graphstore.Store, branches *branchreg.Registry, schemas *schema.Cache, pub Publisher) *Engine {
		return New(db, store, branches, schemas, pub)
	}),
)
