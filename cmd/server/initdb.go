package main

import (
	"context"
	"time"

	"nodestore/internal/logger"

	"github.com/spf13/cobra"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the nodes table if it does not exist",
	Long: `Connect to the configured database and create the nodes table.

Safe to run repeatedly; an existing table is left untouched.`,
	RunE: runInitDB,
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close() // opening the store applies the schema

	log.Info().
		Str("driver", cfg.EffectiveDriver()).
		Str("database", storeTarget(cfg)).
		Msg("nodes table ready")
	return nil
}
