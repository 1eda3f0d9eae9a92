package config

import (
	"errors"
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "NODESTORE_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "nodestore.yaml"
	// ConfigDirName is the per-user and system config directory
	ConfigDirName = "nodestore"
)

// userConfigDir is $XDG_CONFIG_HOME, falling back to ~/.config
func userConfigDir() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return xdgHome
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}

// SearchPaths lists the config file candidates, highest priority first.
// The working directory entry is relative.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing entry of SearchPaths, made
// absolute when it is the working directory file, or "" when none exists
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		if !fileExists(p) {
			continue
		}
		if p == ConfigFileName {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
		}
		return p
	}
	return ""
}

// DefaultConfigPath is where `nodestore config init` writes a new file:
// the user config directory, or the working directory without one
func DefaultConfigPath() string {
	if dir := userConfigDir(); dir != "" {
		return filepath.Join(dir, ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

// ErrConfigExists is returned by WriteDefault when the target already exists
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault saves DefaultConfig to path unless a file is already there
// and overwrite is false
func WriteDefault(path string, overwrite bool) (*Config, error) {
	if !overwrite && fileExists(path) {
		return nil, ErrConfigExists
	}
	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
