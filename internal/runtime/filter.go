package runtime

import "github.com/aretw0/domaindetect/pkg/domain"

// FilterHits discards statistically insignificant hits.
// A hit is dropped when its coverage or identity is strictly below the threshold.
// An empty result is not an error: no domain was recognized on the chain.
func FilterHits(hits []domain.CandidateHit, minCoverage, minIdentity int) []domain.CandidateHit {
	kept := make([]domain.CandidateHit, 0, len(hits))
	for _, h := range hits {
		if h.PercentCoverage < float64(minCoverage) || h.PercentIdentity < float64(minIdentity) {
			continue
		}
		kept = append(kept, h)
	}
	return kept
}
