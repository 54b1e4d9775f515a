// Package report renders annotation results for humans: Markdown tables for the
// terminal and Mermaid diagrams of each chain's domain map.
package report

import (
	"fmt"
	"strings"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// Header carries session-level context printed above the chain tables.
type Header struct {
	Title          string
	SessionID      string
	State          domain.SessionState
	LibraryVersion string
	Issues         []domain.ChainIssue
}

// Markdown renders one section per chain with its assignment table, gaps and warnings.
// Coordinates are printed 0-based and half-open, as stored.
func Markdown(h Header, results []domain.ChainResult) string {
	var sb strings.Builder

	title := h.Title
	if title == "" {
		title = "Domain annotation"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	var meta []string
	if h.SessionID != "" {
		meta = append(meta, fmt.Sprintf("session `%s`", h.SessionID))
	}
	if h.State != "" {
		meta = append(meta, fmt.Sprintf("state **%s**", h.State))
	}
	if h.LibraryVersion != "" {
		meta = append(meta, fmt.Sprintf("library `%s`", h.LibraryVersion))
	}
	if len(meta) > 0 {
		sb.WriteString(strings.Join(meta, " · "))
		sb.WriteString("\n\n")
	}

	if len(h.Issues) > 0 {
		sb.WriteString("## Certification issues\n\n")
		for _, is := range h.Issues {
			fmt.Fprintf(&sb, "- **%s**: %s\n", is.ChainID, is.Reason)
		}
		sb.WriteString("\n")
	}

	for _, res := range results {
		writeChain(&sb, res)
	}
	return sb.String()
}

func writeChain(sb *strings.Builder, res domain.ChainResult) {
	fmt.Fprintf(sb, "## Chain %s", res.Chain.ID)
	if res.Chain.Name != "" {
		fmt.Fprintf(sb, " (%s)", res.Chain.Name)
	}
	fmt.Fprintf(sb, "\n\n%d residues, %d unassigned.\n\n", res.Chain.Len(), res.Unassigned())

	if len(res.Assignments) == 0 {
		sb.WriteString("_No domains assigned._\n\n")
	} else {
		sb.WriteString("| # | Domain | Start | End | Length | Regime | E-value | Identity | Coverage |\n")
		sb.WriteString("|---|---|---:|---:|---:|---|---:|---:|---:|\n")
		for i, a := range res.Assignments {
			if a.Manual {
				fmt.Fprintf(sb, "| %d | %s | %d | %d | %d | manual | | | |\n",
					i+1, a.DomainID, a.Start, a.End, a.Len())
				continue
			}
			fmt.Fprintf(sb, "| %d | %s | %d | %d | %d | %s | %.2g | %.1f | %.1f |\n",
				i+1, a.DomainID, a.Start, a.End, a.Len(),
				a.Source.Regime, a.Source.EValue, a.Source.PercentIdentity, a.Source.PercentCoverage)
		}
		sb.WriteString("\n")
	}

	if len(res.Gaps) > 0 {
		parts := make([]string, 0, len(res.Gaps))
		for _, g := range res.Gaps {
			parts = append(parts, fmt.Sprintf("[%d, %d)", g.Start, g.End))
		}
		fmt.Fprintf(sb, "**Gaps:** %s\n\n", strings.Join(parts, ", "))
	}

	for _, c := range res.Conflicts {
		fmt.Fprintf(sb, "> **Conflict:** %s [%d, %d) overlaps %s [%d, %d)\n\n",
			c.A.DomainID, c.A.Start, c.A.End, c.B.DomainID, c.B.Start, c.B.End)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(sb, "> _%s_: %s\n\n", w.Code, w.Message)
	}
}
