// Package cmd wires the branchgraph CLI's cobra command tree. Grounded on
// the teacher's tools/emergent-cli/internal/cmd/root.go: persistent flags
// bound into viper, a .env overlay loaded via godotenv, config discovered
// under the user's home directory.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	output  string
	debug   bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "branchgraph",
	Short: "CLI for the branch-aware, time-travelling graph store",
	Long: `branchgraph is the command-line interface to a branch-aware, time-travelling
configuration and inventory graph.

It serves the thin REST facade and gives direct engine access to
branch/diff/merge operations without going through HTTP.`,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.branchgraph/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "table", "output format (table, json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.AddCommand(serveCmd, branchCmd, diffCmd)
}

func initConfig() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(home + "/.branchgraph")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("BRANCHGRAPH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && debug {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
