package memory

import (
	"context"
	"sync"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// Aligner implements ports.Aligner by replaying precomputed hits.
//
// Hits are looked up by chain ID first and by sequence digest second, so a fixture
// keeps working when the same sequence is submitted under another name.
// Safe for concurrent use.
type Aligner struct {
	mu       sync.RWMutex
	byChain  map[string][]domain.CandidateHit
	byDigest map[string][]domain.CandidateHit
	calls    map[string]int
}

// NewAligner creates an empty aligner: every search returns zero hits.
func NewAligner() *Aligner {
	return &Aligner{
		byChain:  make(map[string][]domain.CandidateHit),
		byDigest: make(map[string][]domain.CandidateHit),
		calls:    make(map[string]int),
	}
}

// NewAlignerFromHits groups flat hits by their ChainID.
func NewAlignerFromHits(hits []domain.CandidateHit) *Aligner {
	a := NewAligner()
	for _, h := range hits {
		a.byChain[h.ChainID] = append(a.byChain[h.ChainID], h)
	}
	return a
}

// SetHits registers the hits returned for a chain ID.
func (a *Aligner) SetHits(chainID string, hits ...domain.CandidateHit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byChain[chainID] = append([]domain.CandidateHit(nil), hits...)
}

// SetHitsForSequence registers the hits returned for any chain carrying the sequence.
func (a *Aligner) SetHitsForSequence(sequence string, hits ...domain.CandidateHit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byDigest[domain.Chain{Sequence: sequence}.Digest()] = append([]domain.CandidateHit(nil), hits...)
}

// Search returns the registered hits re-attributed to the searched chain.
func (a *Aligner) Search(ctx context.Context, chain domain.Chain, _ *domain.Library) ([]domain.CandidateHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[chain.ID]++

	hits, ok := a.byChain[chain.ID]
	if !ok {
		hits = a.byDigest[chain.Digest()]
	}
	out := make([]domain.CandidateHit, 0, len(hits))
	for _, h := range hits {
		h.ChainID = chain.ID
		out = append(out, h)
	}
	return out, nil
}

// Calls returns how many times a chain was searched.
func (a *Aligner) Calls(chainID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calls[chainID]
}
