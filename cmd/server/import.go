package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nodestore/internal/logger"
	"nodestore/internal/service"

	"github.com/spf13/cobra"
)

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load nodes from a JSON or YAML document",
	Long: `Create every node listed in FILE in a single transaction.

The format is taken from --format, or from the file extension
(.json, .yaml, .yml). Ids in the document are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", "", "document format: json or yaml")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := service.NewNodeService(repo, nil, log)
	result, err := svc.Import(ctx, formatFor(args[0], importFormat), f)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes\n", result.Imported)
	return nil
}

// formatFor prefers an explicit format, then the file extension
func formatFor(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
