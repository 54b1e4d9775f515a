package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/domaindetect/internal/config"
	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "domaindetect",
	Short: "domaindetect annotates antibody chains with structural domains",
	Long: `domaindetect resolves domain annotations (variable, constant, hinge...) for protein chains.
It takes chains, a domain library and alignment hits, and produces one non-overlapping,
certified domain table per chain.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Settings file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().StringP("library", "l", "", "Domain library file or directory (overrides library.path)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides log.level)")
	rootCmd.PersistentFlags().String("cache", "", "Hit cache backend: none, memory, file, sqlite or redis (overrides cache.backend)")
}

// loadSettings reads the settings file, if any, and applies the persistent flag overrides.
func loadSettings(cmd *cobra.Command) (config.File, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if v, _ := cmd.Flags().GetString("library"); v != "" {
		cfg.Library.Path = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("cache"); v != "" {
		cfg.Cache.Backend = v
	}
	return cfg, cfg.Validate()
}

// newLogger builds the stderr logger for the configured level.
func newLogger(cfg config.File) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}
