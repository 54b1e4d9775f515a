package ports

import (
	"context"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// Aligner runs the sequence-alignment search of one chain against the library.
// Returning zero hits is valid. Implementations must honour context cancellation.
type Aligner interface {
	Search(ctx context.Context, chain domain.Chain, lib *domain.Library) ([]domain.CandidateHit, error)
}

// AlignerFunc adapts a plain function to the Aligner interface.
type AlignerFunc func(ctx context.Context, chain domain.Chain, lib *domain.Library) ([]domain.CandidateHit, error)

// Search calls f.
func (f AlignerFunc) Search(ctx context.Context, chain domain.Chain, lib *domain.Library) ([]domain.CandidateHit, error) {
	return f(ctx, chain, lib)
}
