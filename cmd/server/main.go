// Command server runs the nodestore HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "nodestore",
	Short: "CRUD API for labelled nodes with JSON attributes",
	Long: `nodestore serves a small REST API over a single "nodes" table.

The store is PostgreSQL when a database URL is configured and an embedded
SQLite file otherwise. Settings come from nodestore.yaml, .env and the
environment (DATABASE_URL, NODESTORE_*), and flags override all of them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: search $NODESTORE_CONFIG, ./nodestore.yaml, ~/.config/nodestore)")
	rootCmd.PersistentFlags().String("driver", "", "database driver: postgres or sqlite")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
