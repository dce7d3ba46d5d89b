package nodemgr

import (
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/schema"
)

// Module provides the Node Manager to the fx graph.
var Module = fx.Module("nodemgr",
	fx.Provide(func(db bun.IDB, store *graphstore.Store, branches *branchreg.Registry, schemas *schema.Cache) *Manager {
		return New(db, store, branches, schemas)
	}),
)
