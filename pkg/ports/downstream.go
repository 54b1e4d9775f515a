package ports

import (
	"context"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// PeptideBuilder constructs peptides and bonds from certified domain assignments.
// It only ever sees results of a CERTIFIED session.
type PeptideBuilder interface {
	Build(ctx context.Context, results []domain.ChainResult) error
}

// MutationScanner scans certified chains for mutations against an external database.
// Its failures are isolated from the session state.
type MutationScanner interface {
	Scan(ctx context.Context, results []domain.ChainResult) error
}
