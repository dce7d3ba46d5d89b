package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/branchgraph/branchgraph/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the thin REST facade and all background components",
	Long: `serve boots the full process: config, logging, database, migrations,
the Branch Registry, Graph Store, Query Resolver, Schema Cache, Diff and
Merge Engines, the Event Emitter, and the HTTP facade.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		app.New(
			fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
				return &fxevent.SlogLogger{Logger: log}
			}),
		).Run()
		return nil
	},
}
