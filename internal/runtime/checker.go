package runtime

import (
	"fmt"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// CheckChain certifies that a resolved chain is ready for peptide construction.
// It returns one issue per violation; an empty result means the chain is compatible.
//
// A chain is compatible when its assignments are in bounds, sorted, pairwise disjoint,
// and every uncovered interval longer than tolerance is recorded as a gap.
func CheckChain(res domain.ChainResult, tolerance int) []domain.ChainIssue {
	var issues []domain.ChainIssue
	id := res.Chain.ID
	add := func(format string, args ...any) {
		issues = append(issues, domain.ChainIssue{ChainID: id, Reason: fmt.Sprintf(format, args...)})
	}

	chainLen := res.Chain.Len()
	for i, a := range res.Assignments {
		if a.Start < 0 || a.End > chainLen || a.Start >= a.End {
			add("assignment %s [%d,%d) outside chain of length %d", a.DomainID, a.Start, a.End, chainLen)
		}
		if i > 0 && res.Assignments[i-1].Start > a.Start {
			add("assignments not ordered at %s [%d,%d)", a.DomainID, a.Start, a.End)
		}
	}

	sorted := append([]domain.DomainAssignment(nil), res.Assignments...)
	domain.SortAssignments(sorted)
	for _, c := range FindConflicts(sorted) {
		add("%s [%d,%d) overlaps %s [%d,%d)", c.A.DomainID, c.A.Start, c.A.End, c.B.DomainID, c.B.Start, c.B.End)
	}

	recorded := make(map[[2]int]bool, len(res.Gaps))
	for _, g := range res.Gaps {
		recorded[[2]int{g.Start, g.End}] = true
	}
	expected := DetectGaps(id, chainLen, sorted, tolerance)
	for _, g := range expected {
		if !recorded[[2]int{g.Start, g.End}] {
			add("unassigned region [%d,%d) not recorded as gap", g.Start, g.End)
		}
	}
	if len(res.Gaps) != len(expected) {
		add("recorded gaps are stale (%d recorded, %d expected)", len(res.Gaps), len(expected))
	}

	return issues
}
