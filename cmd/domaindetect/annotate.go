package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/domaindetect/internal/fasta"
	"github.com/aretw0/domaindetect/internal/presentation/report"
	"github.com/aretw0/domaindetect/internal/presentation/tui"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/observability"
	"github.com/aretw0/domaindetect/pkg/session"
	"github.com/spf13/cobra"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <chains.fasta>",
	Short: "Annotate the chains of a FASTA file with library domains",
	Long: `Runs a one-shot session over the chains of a FASTA file ("-" reads stdin):
the library is loaded, every chain is searched, hits are resolved into domain
assignments and the result is certified.

Hits come from a precomputed file (--hits) or from an alignment tool defined in a
tools file (--tool, --tools-file).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("hits"); v != "" {
			cfg.Aligner.HitsFile = v
		}
		if v, _ := cmd.Flags().GetString("hits-format"); v != "" {
			cfg.Aligner.HitsFormat = v
		}
		if v, _ := cmd.Flags().GetString("tool"); v != "" {
			cfg.Aligner.Tool = v
		}
		if v, _ := cmd.Flags().GetString("tools-file"); v != "" {
			cfg.Aligner.ToolsFile = v
		}
		format, _ := cmd.Flags().GetString("format")
		plain, _ := cmd.Flags().GetBool("plain")
		quiet, _ := cmd.Flags().GetBool("quiet")

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		chains, err := fasta.ReadFile(args[0])
		if err != nil {
			return err
		}

		det, err := buildDetector(cfg, logger, observability.LoggingHooks(logger))
		if err != nil {
			return err
		}
		defer det.Close()

		if !quiet && format == "report" && !plain {
			tui.PrintBanner(os.Stderr)
		}

		snap, runErr := det.Annotate(cmd.Context(), chains)
		if snap.ID != "" {
			var lib *domain.Library
			if format == "mermaid" {
				// Node shapes follow domain kinds.
				lib, _ = det.Library(cmd.Context())
			}
			if err := render(cmd.OutOrStdout(), format, plain, snap, lib, det.Name); err != nil {
				return err
			}
		}
		if runErr != nil {
			return fmt.Errorf("annotation stopped at %s: %w", snap.State, runErr)
		}
		return nil
	},
}

func render(w io.Writer, format string, plain bool, snap session.Snapshot, lib *domain.Library, libraryName string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "mermaid":
		_, err := fmt.Fprint(w, report.Mermaid(snap.Results, lib))
		return err
	case "markdown", "report":
		md := report.Markdown(report.Header{
			Title:          "Domain annotation: " + libraryName,
			SessionID:      snap.ID,
			State:          snap.State,
			LibraryVersion: snap.LibraryVersion,
			Issues:         snap.Issues,
		}, snap.Results)
		if format == "markdown" {
			plain = true
		}
		out, err := tui.NewRenderer(plain)(md)
		if err != nil {
			return err
		}
		if !plain {
			fmt.Fprintln(w, tui.StateBadge(snap.State))
		}
		_, err = fmt.Fprint(w, out)
		return err
	default:
		return fmt.Errorf("unknown format %q (want report, markdown, json or mermaid)", format)
	}
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().String("hits", "", "Precomputed hits file (tsv or json)")
	annotateCmd.Flags().String("hits-format", "", "Hits file format: tsv or json (default: from extension)")
	annotateCmd.Flags().String("tool", "", "Alignment tool name from the tools file")
	annotateCmd.Flags().String("tools-file", "", "Alignment tools definition file (default: tools.yaml)")
	annotateCmd.Flags().StringP("format", "f", "report", "Output: report, markdown, json or mermaid")
	annotateCmd.Flags().Bool("plain", false, "Disable terminal styling")
	annotateCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
