package main

import (
	"fmt"
	"io"

	"github.com/aretw0/domaindetect"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the alignment hit cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached hits of a library version",
	Long: `Removes every cached alignment recorded for a library version. Without --version
the version of the configured library is used, which is what you want after editing it
in place with an explicit version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		version, _ := cmd.Flags().GetString("version")
		if version == "" {
			if cfg.Library.Path == "" {
				return fmt.Errorf("pass --version or configure a library")
			}
			loader, err := domaindetect.OpenLibrary(cfg.Library.Path, cfg.Library.Version)
			if err != nil {
				return err
			}
			lib, err := loader.Load(cmd.Context())
			if err != nil {
				return err
			}
			version = lib.Version
		}

		b, err := openCache(cfg.Cache)
		if err != nil {
			return err
		}
		if c, ok := b.cache.(io.Closer); ok {
			defer c.Close()
		}
		purgeable, ok := b.cache.(ports.PurgeableCache)
		if !ok {
			return fmt.Errorf("cache backend %q does not persist hits", cfg.Cache.Backend)
		}

		n, err := purgeable.Purge(cmd.Context(), version)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached searches for library version %s\n", n, version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	cachePurgeCmd.Flags().String("version", "", "Library version to purge (default: the configured library's)")
}
