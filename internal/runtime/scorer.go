package runtime

import (
	"sort"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// Classify places an e-value in one of the three significance regimes.
// upper must not exceed lower; an e-value closer to zero is more significant.
func Classify(evalue, upper, lower float64) domain.Regime {
	switch {
	case evalue <= upper:
		return domain.RegimeHighlySignificant
	case evalue <= lower:
		return domain.RegimeSignificant
	default:
		return domain.RegimeExcluded
	}
}

// ScoreHits ranks filtered hits.
//
// Highly significant hits rank by coverage x identity. Significant hits rank by coverage
// alone since identity is unreliable at that level. Excluded hits get a zero rank and are
// kept in the output so callers can still show them.
//
// The result is ordered by (Start asc, Rank desc) with End and domain ID as tie-breaks.
func ScoreHits(hits []domain.CandidateHit, upper, lower float64) []domain.ScoredHit {
	scored := make([]domain.ScoredHit, 0, len(hits))
	for _, h := range hits {
		s := domain.ScoredHit{CandidateHit: h, Regime: Classify(h.EValue, upper, lower)}
		switch s.Regime {
		case domain.RegimeHighlySignificant:
			s.Rank = h.PercentCoverage * h.PercentIdentity
		case domain.RegimeSignificant:
			s.Rank = h.PercentCoverage
		}
		scored = append(scored, s)
	}
	SortScored(scored)
	return scored
}

// SortScored applies the canonical scored-hit order in place.
func SortScored(scored []domain.ScoredHit) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.LibraryDomainID < b.LibraryDomainID
	})
}
