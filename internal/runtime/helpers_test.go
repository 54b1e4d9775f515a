package runtime_test

import (
	"strings"

	"github.com/aretw0/domaindetect/pkg/domain"
)

func chainOf(id string, length int) domain.Chain {
	return domain.Chain{ID: id, Name: id, Sequence: strings.Repeat("A", length)}
}

// hsHit builds a highly significant hit under the default thresholds.
func hsHit(chainID, domainID string, start, end int, cov, ident float64) domain.CandidateHit {
	return domain.CandidateHit{
		ChainID:         chainID,
		LibraryDomainID: domainID,
		Start:           start,
		End:             end,
		PercentCoverage: cov,
		PercentIdentity: ident,
		EValue:          1e-20,
	}
}

// sHit builds a significant hit under the default thresholds.
func sHit(chainID, domainID string, start, end int, cov float64) domain.CandidateHit {
	h := hsHit(chainID, domainID, start, end, cov, 90)
	h.EValue = 1e-5
	return h
}

func plainConfig() domain.Config {
	cfg := domain.DefaultConfig()
	cfg.AutoextendDomains = false
	cfg.BoundaryPolicy = domain.BoundaryMin
	return cfg
}

func spans(as []domain.DomainAssignment) [][3]any {
	out := make([][3]any, 0, len(as))
	for _, a := range as {
		out = append(out, [3]any{a.DomainID, a.Start, a.End})
	}
	return out
}
