package domain

// WarningCode classifies non-fatal conditions surfaced to the user.
type WarningCode string

const (
	// WarnNoHits means no hit survived filtering: no domain recognized on the chain.
	WarnNoHits WarningCode = "no_hits"
	// WarnGaps means the chain has unassigned regions beyond the tolerance.
	WarnGaps WarningCode = "gaps"
	// WarnUnknownDomain means a hit references a domain missing from the library.
	WarnUnknownDomain WarningCode = "unknown_domain"
)

// Warning is a local, non-fatal condition attached to a chain.
type Warning struct {
	Code    WarningCode `json:"code"`
	ChainID string      `json:"chain_id"`
	Message string      `json:"message"`
}

// ChainResult is the outcome of annotating one chain.
type ChainResult struct {
	Chain Chain `json:"chain"`

	// Hits are the raw candidates returned by the aligner.
	Hits []CandidateHit `json:"hits"`
	// Scored holds every hit that passed the filter, excluded ones included.
	Scored []ScoredHit `json:"scored"`

	Assignments []DomainAssignment `json:"assignments"`
	Gaps        []Gap              `json:"gaps"`
	Warnings    []Warning          `json:"warnings,omitempty"`

	// Conflicts lists overlaps the resolver could not remove.
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Unassigned returns the number of residues not covered by any assignment.
func (r ChainResult) Unassigned() int {
	return UnassignedLength(r.Chain.Len(), r.Assignments)
}

// Clone returns a deep copy safe to hand out to callers.
func (r ChainResult) Clone() ChainResult {
	out := r
	out.Hits = append([]CandidateHit(nil), r.Hits...)
	out.Scored = append([]ScoredHit(nil), r.Scored...)
	out.Assignments = append([]DomainAssignment(nil), r.Assignments...)
	out.Gaps = append([]Gap(nil), r.Gaps...)
	out.Warnings = append([]Warning(nil), r.Warnings...)
	out.Conflicts = append([]Conflict(nil), r.Conflicts...)
	return out
}
