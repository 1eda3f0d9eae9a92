// Package logger builds the process zerolog logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nodestore/internal/config"
)

// New builds a logger writing to the configured output and installs it as
// the global zerolog logger
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	output, err := outputFor(cfg.Output)
	if err != nil {
		return zerolog.Nop(), err
	}
	return NewWithWriter(cfg, output)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(cfg config.LogConfig, output io.Writer) (zerolog.Logger, error) {
	if err := SetLevel(cfg.Level); err != nil {
		return zerolog.Nop(), err
	}
	zerolog.TimeFieldFormat = time.RFC3339

	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format '%s'", cfg.Format)
	}

	l := zerolog.New(output).With().
		Timestamp().
		Str("service", "nodestore").
		Logger()

	log.Logger = l
	return l, nil
}

// SetLevel changes the global log level at runtime
func SetLevel(level string) error {
	if level == "" {
		level = "info"
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

func outputFor(name string) (io.Writer, error) {
	switch strings.ToLower(name) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("invalid log output '%s'", name)
	}
}
