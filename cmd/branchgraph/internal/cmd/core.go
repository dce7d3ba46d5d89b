package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/app"
	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/diff"
	"github.com/branchgraph/branchgraph/internal/merge"
)

// coreHandles are the engine components the branch/diff commands operate on
// directly, bypassing the HTTP facade entirely.
type coreHandles struct {
	Branches *branchreg.Registry
	Diffs    *diff.Engine
	Merges   *merge.Engine
}

// withCore starts the full core fx graph (config through Merge Engine,
// skipping the facade), runs fn, then tears the graph down. One-shot CLI
// commands use fx.Populate rather than fx.Invoke so the command body stays
// plain Go, not another fx provider.
func withCore(fn func(ctx context.Context, h *coreHandles) error) error {
	var h coreHandles
	fxApp := fx.New(
		app.CoreModules,
		fx.NopLogger,
		fx.Populate(&h.Branches, &h.Diffs, &h.Merges),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelStop()
		_ = fxApp.Stop(stopCtx)
	}()

	return fn(context.Background(), &h)
}
