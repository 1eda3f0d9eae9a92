package main

import (
	"context"
	"fmt"

	"nodestore/internal/config"
	"nodestore/internal/repository"
	"nodestore/internal/repository/postgres"
	"nodestore/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

// loadConfig resolves settings from file, .env, environment and flags
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if configPath != "" {
		if err := config.LoadDotEnv(); err != nil {
			return nil, "", err
		}
		cfg, path, err = config.LoadFromPath(configPath)
		if err == nil {
			err = cfg.ApplyEnv()
		}
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}

	flags := cmd.Flags()
	overrides := map[string]*string{
		"driver":       &cfg.Database.Driver,
		"database-url": &cfg.Database.URL,
		"db":           &cfg.Database.Path,
		"log-level":    &cfg.Log.Level,
		"addr":         &cfg.Server.Addr,
	}
	for name, dst := range overrides {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil, path, err
		}
		*dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// openStore connects to the configured database and bootstraps the schema
func openStore(ctx context.Context, cfg *config.Config) (repository.NodeRepository, error) {
	switch cfg.EffectiveDriver() {
	case config.DriverPostgres:
		repo, err := postgres.New(ctx, cfg.Database.URL, postgres.Options{
			MaxConns:       cfg.Database.MaxConns,
			MinConns:       cfg.Database.MinConns,
			ConnectTimeout: cfg.Database.ConnectTimeout.Duration(),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return repo, nil
	default:
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, nil
	}
}

// storeTarget describes the database for log lines without leaking credentials
func storeTarget(cfg *config.Config) string {
	if cfg.EffectiveDriver() == config.DriverPostgres {
		return "postgres"
	}
	return cfg.Database.Path
}
