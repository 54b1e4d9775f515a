package domain

import "sort"

// DomainAssignment is a resolved interval attributed to a library domain.
// For a fixed chain no two assignments overlap.
type DomainAssignment struct {
	ChainID  string `json:"chain_id"`
	DomainID string `json:"domain_id"`
	Start    int    `json:"start"`
	End      int    `json:"end"`

	// Source is the scored hit this assignment was derived from.
	// Boundaries may differ from the raw hit after adjustment.
	Source ScoredHit `json:"source"`

	// Manual marks assignments entered by the user rather than derived from a hit.
	Manual bool `json:"manual,omitempty"`
}

// Len returns the number of residues assigned.
func (a DomainAssignment) Len() int {
	return a.End - a.Start
}

// Overlaps reports whether two assignments share at least one residue.
func (a DomainAssignment) Overlaps(b DomainAssignment) bool {
	return a.Start < b.End && b.Start < a.End
}

// Gap is a maximal unassigned interval longer than the configured tolerance.
type Gap struct {
	ChainID string `json:"chain_id"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Len returns the gap length in residues.
func (g Gap) Len() int {
	return g.End - g.Start
}

// SortAssignments orders assignments by start, then end, then domain ID.
func SortAssignments(as []DomainAssignment) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Start != as[j].Start {
			return as[i].Start < as[j].Start
		}
		if as[i].End != as[j].End {
			return as[i].End < as[j].End
		}
		return as[i].DomainID < as[j].DomainID
	})
}

// UnassignedLength counts residues of a chain of length chainLen not covered by
// any assignment. Assignments must be sorted and non-overlapping.
func UnassignedLength(chainLen int, as []DomainAssignment) int {
	covered := 0
	for _, a := range as {
		start, end := max(a.Start, 0), min(a.End, chainLen)
		if end > start {
			covered += end - start
		}
	}
	return chainLen - covered
}
