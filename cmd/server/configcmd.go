package main

import (
	"errors"
	"fmt"

	"nodestore/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a config file with default settings",
	Long: `Write the default configuration as YAML.

PATH defaults to $XDG_CONFIG_HOME/nodestore/config.yaml
(~/.config/nodestore/config.yaml). An existing file is kept unless
--force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings and where they came from",
	RunE:  runConfigShow,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := config.WriteDefault(path, configForce); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s: %w (use --force to overwrite)", path, err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if path == "" {
		path = "(defaults)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config: %s\n", path)
	fmt.Fprintln(out, cfg.Summary())
	return nil
}
