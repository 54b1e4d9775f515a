package report_test

import (
	"strings"
	"testing"

	"github.com/aretw0/domaindetect/internal/presentation/report"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func sampleResult() domain.ChainResult {
	src := domain.ScoredHit{
		CandidateHit: domain.CandidateHit{EValue: 1e-30, PercentIdentity: 92.5, PercentCoverage: 99},
		Regime:       domain.RegimeHighlySignificant,
	}
	return domain.ChainResult{
		Chain: domain.Chain{ID: "H", Name: "heavy", Sequence: strings.Repeat("A", 150)},
		Assignments: []domain.DomainAssignment{
			{ChainID: "H", DomainID: "IGHV3-23", Start: 0, End: 98, Source: src},
			{ChainID: "H", DomainID: "IGHG1-CH1", Start: 120, End: 150, Manual: true},
		},
		Gaps:     []domain.Gap{{ChainID: "H", Start: 98, End: 120}},
		Warnings: []domain.Warning{{Code: domain.WarnGaps, ChainID: "H", Message: "1 unassigned region"}},
	}
}

func lib(t *testing.T) *domain.Library {
	t.Helper()
	l, err := domain.NewLibrary("v1", []domain.LibraryDomain{
		{ID: "IGHV3-23", Kind: domain.KindVariable},
		{ID: "IGHG1-CH1", Kind: domain.KindConstant},
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestMarkdown(t *testing.T) {
	out := report.Markdown(report.Header{
		SessionID:      "s-1",
		State:          domain.StateResolved,
		LibraryVersion: "v1",
		Issues:         []domain.ChainIssue{{ChainID: "H", Reason: "gap [98,120) not recorded"}},
	}, []domain.ChainResult{
		sampleResult(),
		{Chain: domain.Chain{ID: "L", Sequence: "DIQM"}},
	})

	assert.Contains(t, out, "# Domain annotation")
	assert.Contains(t, out, "state **RESOLVED**")
	assert.Contains(t, out, "## Certification issues")
	assert.Contains(t, out, "## Chain H (heavy)")
	assert.Contains(t, out, "150 residues, 22 unassigned.")
	assert.Contains(t, out, "| 1 | IGHV3-23 | 0 | 98 | 98 |")
	assert.Contains(t, out, "| 2 | IGHG1-CH1 | 120 | 150 | 30 | manual |")
	assert.Contains(t, out, "**Gaps:** [98, 120)")
	assert.Contains(t, out, "_gaps_: 1 unassigned region")
	assert.Contains(t, out, "## Chain L")
	assert.Contains(t, out, "_No domains assigned._")
}

func TestMermaid(t *testing.T) {
	res := sampleResult()
	res.Chain.ID = "1abc.H"

	out := report.Mermaid([]domain.ChainResult{res}, lib(t))

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, `subgraph chain_1abc_H["1abc.H"]`)
	assert.Contains(t, out, `chain_1abc_H_0["IGHV3-23 <br/> 0-98"]`)
	assert.Contains(t, out, `chain_1abc_H_1[/"gap 98-120"/]`)
	assert.Contains(t, out, `chain_1abc_H_2[["IGHG1-CH1 <br/> 120-150"]]`)
	assert.Contains(t, out, "chain_1abc_H_0 --> chain_1abc_H_1")
	assert.Contains(t, out, "chain_1abc_H_1 --> chain_1abc_H_2")
	assert.Contains(t, out, "class chain_1abc_H_2 manual;")
	assert.NotContains(t, out, "class chain_1abc_H_0")
}

func TestMermaid_Conflicts(t *testing.T) {
	a := domain.DomainAssignment{ChainID: "H", DomainID: "V", Start: 0, End: 60}
	b := domain.DomainAssignment{ChainID: "H", DomainID: "C", Start: 40, End: 100}
	out := report.Mermaid([]domain.ChainResult{{
		Chain:       domain.Chain{ID: "H", Sequence: strings.Repeat("A", 100)},
		Assignments: []domain.DomainAssignment{a, b},
		Conflicts:   []domain.Conflict{{A: a, B: b}},
	}}, nil)

	assert.Contains(t, out, "class chain_H_0 conflict;")
	assert.Contains(t, out, "class chain_H_1 conflict;")
}
