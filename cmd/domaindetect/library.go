package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/domaindetect"
	"github.com/aretw0/domaindetect/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect the domain library",
}

var libraryLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the domains of the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if cfg.Library.Path == "" {
			return fmt.Errorf("no domain library: set library.path or pass --library")
		}
		plain, _ := cmd.Flags().GetBool("plain")

		loader, err := domaindetect.OpenLibrary(cfg.Library.Path, cfg.Library.Version)
		if err != nil {
			return err
		}
		lib, err := loader.Load(cmd.Context())
		if err != nil {
			return err
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# Library `%s`\n\n", lib.Version)
		sb.WriteString("| ID | Name | Kind | Chain | Length |\n|---|---|---|---|---|\n")
		for _, d := range lib.Domains {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %d |\n", d.ID, d.Name, d.Kind, d.ChainType, d.CanonicalLength())
		}
		fmt.Fprintf(&sb, "\n%d domains\n", lib.Len())

		out, err := tui.NewRenderer(plain)(sb.String())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryLsCmd)

	libraryLsCmd.Flags().Bool("plain", false, "Disable terminal styling")
}
