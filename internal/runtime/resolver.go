package runtime

import (
	"math"
	"sort"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// scoreEpsilon absorbs float noise when comparing summed ranks.
const scoreEpsilon = 1e-9

// Resolver turns the scored hits of one chain into an ordered, non-overlapping
// list of domain assignments.
type Resolver struct {
	cfg     domain.Config
	library *domain.Library
}

// NewResolver creates a resolver for the given policy. The library is used for
// canonical domain lengths when autoextension is on; it may be nil.
func NewResolver(cfg domain.Config, library *domain.Library) *Resolver {
	return &Resolver{
		cfg:     cfg.Effective(),
		library: library,
	}
}

// Resolve selects the best-scoring compatible subset of hits, removes residual
// overlaps, and applies the boundary policy.
//
// If assignments still overlap after every policy has run, the assignments are
// returned together with a *domain.ConflictError so the caller can block certification.
func (r *Resolver) Resolve(chain domain.Chain, scored []domain.ScoredHit) ([]domain.DomainAssignment, error) {
	candidates := make([]domain.ScoredHit, 0, len(scored))
	for _, h := range scored {
		if h.Selectable() && h.Len() > 0 {
			candidates = append(candidates, h)
		}
	}

	selected := r.selectHits(candidates)

	assignments := make([]domain.DomainAssignment, 0, len(selected))
	for _, h := range selected {
		assignments = append(assignments, domain.DomainAssignment{
			ChainID:  chain.ID,
			DomainID: h.LibraryDomainID,
			Start:    h.Start,
			End:      h.End,
			Source:   h,
		})
	}
	domain.SortAssignments(assignments)

	truncateOverlaps(assignments)
	applyBoundaryPolicy(assignments, r.cfg.BoundaryPolicy, r.cfg.MaxDomainDistance)
	if r.cfg.AutoextendDomains {
		r.extendTermini(assignments, chain.Len())
	}

	if conflicts := FindConflicts(assignments); len(conflicts) > 0 {
		return assignments, &domain.ConflictError{ChainID: chain.ID, Conflicts: conflicts}
	}
	return assignments, nil
}

// cell is the best chain of hits ending at a given candidate.
type cell struct {
	score   float64
	covered int
	count   int
	prev    int
}

// selectHits solves the weighted interval scheduling problem over candidates.
// Candidates are sorted by end; cell j holds the best chain whose last hit is j.
// Neighbours in a chain must be compatible (see compatible); non-neighbours are
// then guaranteed disjoint, so checking consecutive pairs is enough.
func (r *Resolver) selectHits(candidates []domain.ScoredHit) []domain.ScoredHit {
	if len(candidates) == 0 {
		return nil
	}

	hits := append([]domain.ScoredHit(nil), candidates...)
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].End != hits[j].End {
			return hits[i].End < hits[j].End
		}
		if hits[i].Start != hits[j].Start {
			return hits[i].Start < hits[j].Start
		}
		if hits[i].Rank != hits[j].Rank {
			return hits[i].Rank > hits[j].Rank
		}
		return hits[i].LibraryDomainID < hits[j].LibraryDomainID
	})

	tol := r.cfg.OverlapTolerance()
	best := make([]cell, len(hits))
	for j, h := range hits {
		best[j] = cell{score: h.Rank, covered: h.Len(), count: 1, prev: -1}
		for i := 0; i < j; i++ {
			overlap, ok := compatible(hits[i], h, tol)
			if !ok {
				continue
			}
			c := cell{
				score:   best[i].score + h.Rank,
				covered: best[i].covered + h.Len() - overlap,
				count:   best[i].count + 1,
				prev:    i,
			}
			if r.better(c, best[j]) {
				best[j] = c
			}
		}
	}

	last := 0
	for j := 1; j < len(best); j++ {
		if r.better(best[j], best[last]) {
			last = j
		}
	}

	var chosen []domain.ScoredHit
	for j := last; j >= 0; j = best[j].prev {
		chosen = append(chosen, hits[j])
	}
	for i, k := 0, len(chosen)-1; i < k; i, k = i+1, k-1 {
		chosen[i], chosen[k] = chosen[k], chosen[i]
	}
	return chosen
}

// better reports whether a beats b: higher total rank first, then the configured tie-break.
// Exact ties keep b, so earlier candidates win deterministically.
func (r *Resolver) better(a, b cell) bool {
	if diff := a.score - b.score; math.Abs(diff) > scoreEpsilon*math.Max(1, math.Abs(b.score)) {
		return diff > 0
	}
	switch r.cfg.TieBreak {
	case domain.TieBreakFewerDomains:
		if a.count != b.count {
			return a.count < b.count
		}
		return a.covered > b.covered
	default:
		if a.covered != b.covered {
			return a.covered > b.covered
		}
		return a.count < b.count
	}
}

// compatible reports whether a (ending first) and b may both be accepted, and how
// many residues they share. Containment is never compatible. A shared region must not
// exceed tol (negative tol means no cap) and must stay under half of either hit, so
// truncating the weaker hit never empties it.
func compatible(a, b domain.ScoredHit, tol int) (int, bool) {
	if a.Start >= b.Start || a.End >= b.End {
		return 0, false
	}
	overlap := a.End - b.Start
	if overlap <= 0 {
		return 0, true
	}
	if tol >= 0 && overlap > tol {
		return 0, false
	}
	if 2*overlap >= a.Len() || 2*overlap >= b.Len() {
		return 0, false
	}
	return overlap, true
}

// truncateOverlaps removes the overlap between neighbouring assignments by moving the
// boundary of the lower-rank one. On equal rank the later assignment yields.
func truncateOverlaps(as []domain.DomainAssignment) {
	for i := 1; i < len(as); i++ {
		prev, cur := &as[i-1], &as[i]
		if prev.End <= cur.Start {
			continue
		}
		if prev.Source.Rank >= cur.Source.Rank {
			cur.Start = prev.End
		} else {
			prev.End = cur.Start
		}
	}
}

// extendTermini stretches a terminal assignment to the chain end when its matched
// region is shorter than the library domain's canonical length and the missing
// residues can reach that end. Interior matches keep their span.
func (r *Resolver) extendTermini(as []domain.DomainAssignment, chainLen int) {
	if len(as) == 0 {
		return
	}
	first, last := &as[0], &as[len(as)-1]
	if first.Start > 0 && first.Start <= r.missing(first) {
		first.Start = 0
	}
	if last.End < chainLen && chainLen-last.End <= r.missing(last) {
		last.End = chainLen
	}
}

// missing is the number of canonical residues the source hit did not match.
func (r *Resolver) missing(a *domain.DomainAssignment) int {
	d, ok := r.library.Domain(a.DomainID)
	if !ok {
		return 0
	}
	if n := d.CanonicalLength() - a.Source.Len(); n > 0 {
		return n
	}
	return 0
}

// FindConflicts returns every pair of overlapping assignments.
// Assignments must be sorted by start.
func FindConflicts(as []domain.DomainAssignment) []domain.Conflict {
	var conflicts []domain.Conflict
	for i := range as {
		for j := i + 1; j < len(as) && as[j].Start < as[i].End; j++ {
			if as[i].Overlaps(as[j]) {
				conflicts = append(conflicts, domain.Conflict{A: as[i], B: as[j]})
			}
		}
	}
	return conflicts
}
