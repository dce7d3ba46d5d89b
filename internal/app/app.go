// Package app assembles the full fx dependency graph: configuration,
// logging, database, migrations, and every core component from the Branch
// Registry through the facade. Grounded on the teacher's cmd/server/main.go
// fx.New(...) composition, generalised to this module's component set.
package app

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/config"
	"github.com/branchgraph/branchgraph/internal/database"
	"github.com/branchgraph/branchgraph/internal/diff"
	"github.com/branchgraph/branchgraph/internal/events"
	"github.com/branchgraph/branchgraph/internal/facade"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/merge"
	"github.com/branchgraph/branchgraph/internal/migrate"
	"github.com/branchgraph/branchgraph/internal/nodemgr"
	"github.com/branchgraph/branchgraph/internal/observability"
	"github.com/branchgraph/branchgraph/internal/query"
	"github.com/branchgraph/branchgraph/internal/schema"
	"github.com/branchgraph/branchgraph/pkg/logger"
)

// CoreModules is every module below the facade — used standalone by the
// CLI's non-serving commands (diff, branch) that need the engine but not an
// HTTP listener.
var CoreModules = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
	migrate.Module,
	observability.Module,
	branchreg.Module,
	graphstore.Module,
	query.Module,
	schema.Module,
	nodemgr.Module,
	diff.Module,
	events.Module,
	merge.Module,
	fx.Invoke(runMigrations),
)

// Modules is the full server composition: CoreModules plus the facade.
var Modules = fx.Options(
	CoreModules,
	facade.Module,
)

func runMigrations(lc fx.Lifecycle, m *migrate.Migrator, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("running startup migrations")
			return m.Up(ctx)
		},
	})
}

// New builds the fx.App for `branchgraph serve`.
func New(opts ...fx.Option) *fx.App {
	all := append([]fx.Option{Modules}, opts...)
	return fx.New(all...)
}

// NewCore builds the fx.App for CLI commands that need the engine without
// the HTTP facade (diff, branch *).
func NewCore(opts ...fx.Option) *fx.App {
	all := append([]fx.Option{CoreModules}, opts...)
	return fx.New(all...)
}
