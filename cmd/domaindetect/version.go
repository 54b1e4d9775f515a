package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/domaindetect"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of domaindetect",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("domaindetect version %s\n", strings.TrimSpace(domaindetect.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
