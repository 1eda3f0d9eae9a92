// Package config provides configuration management for nodestore.
//
// Settings are layered, later layers winning:
//  1. built-in defaults
//  2. the YAML config file
//  3. variables from .env
//  4. process environment (DATABASE_URL, NODESTORE_*, REDIS_URL)
//
// Command line flags are applied on top by cmd/server.
//
// Config file locations (priority order):
//  1. $NODESTORE_CONFIG
//  2. ./nodestore.yaml
//  3. $XDG_CONFIG_HOME/nodestore/config.yaml
//  4. ~/.config/nodestore/config.yaml
//  5. /etc/nodestore/config.yaml
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultCORSOrigin is the editor frontend served in development
const DefaultCORSOrigin = "http://localhost:3000"

// envOverrides maps environment variables onto config fields.
// Empty values leave the file setting untouched.
type envOverrides struct {
	DatabaseURL  string   `envconfig:"DATABASE_URL"`
	Driver       string   `envconfig:"NODESTORE_DB_DRIVER"`
	DBPath       string   `envconfig:"NODESTORE_DB_PATH"`
	Addr         string   `envconfig:"NODESTORE_ADDR"`
	LogLevel     string   `envconfig:"NODESTORE_LOG_LEVEL"`
	LogFormat    string   `envconfig:"NODESTORE_LOG_FORMAT"`
	CORSOrigins  []string `envconfig:"NODESTORE_CORS_ORIGINS"`
	RedisURL     string   `envconfig:"REDIS_URL"`
	RedisChannel string   `envconfig:"NODESTORE_REDIS_CHANNEL"`
}

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, "", err
	}

	path := FindConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	cfg, path, err := LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadDotEnv loads variables from the given files (default .env) into the
// process environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     Duration(15 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			CORSOrigins:     []string{DefaultCORSOrigin},
		},
		Database: DatabaseConfig{
			Path:           "./nodestore.db",
			ConnectTimeout: Duration(5 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = def.Server.CORSOrigins
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = def.Log.Output
	}
}

// ApplyEnv overlays environment variables on the loaded settings
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	setIf(&c.Database.URL, env.DatabaseURL)
	setIf(&c.Database.Driver, env.Driver)
	setIf(&c.Database.Path, env.DBPath)
	setIf(&c.Server.Addr, env.Addr)
	setIf(&c.Log.Level, env.LogLevel)
	setIf(&c.Log.Format, env.LogFormat)
	if len(env.CORSOrigins) > 0 {
		c.Server.CORSOrigins = env.CORSOrigins
	}
	if env.RedisURL != "" {
		c.Events.Redis.URL = env.RedisURL
		c.Events.Redis.Enabled = true
	}
	setIf(&c.Events.Redis.Channel, env.RedisChannel)

	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// EffectiveDriver returns the configured driver, or postgres when a
// database URL is set and sqlite otherwise
func (c *Config) EffectiveDriver() string {
	if c.Database.Driver != "" {
		return c.Database.Driver
	}
	if c.Database.URL != "" {
		return DriverPostgres
	}
	return DriverSQLite
}

// Validate checks settings that would otherwise fail late at startup
func (c *Config) Validate() error {
	switch driver := c.EffectiveDriver(); driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", driver)
	}
	if c.Database.MinConns > c.Database.MaxConns && c.Database.MaxConns > 0 {
		return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Events.Redis.Enabled && c.Events.Redis.URL == "" {
		return errors.New("events.redis.url is required when redis events are enabled")
	}
	return nil
}

// Summary returns a one-line description of the effective settings.
// Database URLs are never included.
func (c *Config) Summary() string {
	driver := c.EffectiveDriver()
	target := c.Database.Path
	if driver == DriverPostgres {
		target = "url"
	}
	return fmt.Sprintf("addr=%s driver=%s database=%s log=%s/%s redis_events=%v",
		c.Server.Addr, driver, target, c.Log.Level, c.Log.Format, c.Events.Redis.Enabled)
}
