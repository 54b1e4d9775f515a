package report

import (
	"fmt"
	"strings"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// Mermaid produces a left-to-right flowchart with one subgraph per chain.
// Shapes follow the domain kind found in lib:
// - Variable: [Rectangle]
// - Constant: [[Subroutine]]
// - Hinge: ((Circle))
// - Gap: [/Parallelogram/]
// Manual assignments and unresolved conflicts get their own styles.
func Mermaid(results []domain.ChainResult, lib *domain.Library) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	var manual, conflicted []string
	for _, res := range results {
		chainID := sanitizeMermaidID(res.Chain.ID)
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", chainID, escape(res.Chain.ID))

		inConflict := make(map[int]bool)
		for _, c := range res.Conflicts {
			inConflict[c.A.Start] = true
			inConflict[c.B.Start] = true
		}

		var prev string
		link := func(id string) {
			if prev != "" {
				fmt.Fprintf(&sb, "        %s --> %s\n", prev, id)
			}
			prev = id
		}

		segments := mergeSegments(res)
		for i, seg := range segments {
			id := fmt.Sprintf("%s_%d", chainID, i)
			if seg.gap {
				fmt.Fprintf(&sb, "        %s[/\"gap %d-%d\"/]\n", id, seg.start, seg.end)
				link(id)
				continue
			}

			opener, closer := "[", "]"
			if d, ok := lib.Domain(seg.domainID); ok {
				switch d.Kind {
				case domain.KindConstant:
					opener, closer = "[[", "]]"
				case domain.KindHinge:
					opener, closer = "((", "))"
				}
			}
			fmt.Fprintf(&sb, "        %s%s\"%s <br/> %d-%d\"%s\n", id, opener, escape(seg.domainID), seg.start, seg.end, closer)
			link(id)

			if seg.manual {
				manual = append(manual, id)
			}
			if inConflict[seg.start] {
				conflicted = append(conflicted, id)
			}
		}
		sb.WriteString("    end\n")
	}

	if len(manual) > 0 || len(conflicted) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef manual fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef conflict fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")
		for _, id := range manual {
			fmt.Fprintf(&sb, "    class %s manual;\n", id)
		}
		for _, id := range conflicted {
			fmt.Fprintf(&sb, "    class %s conflict;\n", id)
		}
	}

	return sb.String()
}

type segment struct {
	start, end int
	domainID   string
	manual     bool
	gap        bool
}

// mergeSegments interleaves assignments and reported gaps in chain order.
func mergeSegments(res domain.ChainResult) []segment {
	out := make([]segment, 0, len(res.Assignments)+len(res.Gaps))
	gi := 0
	for _, a := range res.Assignments {
		for gi < len(res.Gaps) && res.Gaps[gi].Start < a.Start {
			out = append(out, segment{start: res.Gaps[gi].Start, end: res.Gaps[gi].End, gap: true})
			gi++
		}
		out = append(out, segment{start: a.Start, end: a.End, domainID: a.DomainID, manual: a.Manual})
	}
	for ; gi < len(res.Gaps); gi++ {
		out = append(out, segment{start: res.Gaps[gi].Start, end: res.Gaps[gi].End, gap: true})
	}
	return out
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "chain_" + s
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
