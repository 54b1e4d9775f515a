package file

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/domaindetect/internal/hits"
	"github.com/aretw0/domaindetect/pkg/adapters/memory"
	"github.com/aretw0/domaindetect/pkg/domain"
)

// ReadHits parses a precomputed alignment file. The format is guessed from the
// extension unless opts says otherwise.
func ReadHits(path string, format hits.Format, opts hits.Options) ([]domain.CandidateHit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hits file: %w", err)
	}
	defer f.Close()

	if format == "" {
		format = hits.DetectFormat(path)
	}
	out, err := hits.Read(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// NewHitsAligner returns an aligner replaying the hits stored in a file, for runs where
// the search was done ahead of time.
func NewHitsAligner(ctx context.Context, path string, format hits.Format, opts hits.Options) (*memory.Aligner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := ReadHits(path, format, opts)
	if err != nil {
		return nil, err
	}
	return memory.NewAlignerFromHits(found), nil
}
