package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/domaindetect/pkg/adapters/memory"
	"github.com/aretw0/domaindetect/pkg/domain"
	contract "github.com/aretw0/domaindetect/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	domains := []domain.LibraryDomain{
		{ID: "IGHV3-23", Kind: domain.KindVariable, Length: 98},
		{ID: "IGHG1-CH1", Kind: domain.KindConstant, Sequence: "ASTKGPSVFPLAPSSKSTSGGTAALGCLVKDYFPEPVTVSWNSGALTSGVHTFPAVLQSSGLYSLSSVVTVPSSSLGTQTYICNVNHKPSNTKVDKKV"},
	}
	contract.LibraryLoaderContractTest(t, memory.NewLoader("v1", domains...), domains)
}

func TestInMemoryLoader_InvalidLibrary(t *testing.T) {
	loader := memory.NewLoader("v1", domain.LibraryDomain{ID: "A"}, domain.LibraryDomain{ID: "A"})

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLibraryLoadFailed)
	assert.True(t, domain.IsFatal(err))
}

func TestInMemoryAligner(t *testing.T) {
	ctx := context.Background()
	aligner := memory.NewAlignerFromHits([]domain.CandidateHit{
		{ChainID: "H", LibraryDomainID: "V", Start: 0, End: 10},
	})
	aligner.SetHitsForSequence("QVQL", domain.CandidateHit{LibraryDomainID: "V2", Start: 0, End: 4})

	hits, err := aligner.Search(ctx, domain.Chain{ID: "H", Sequence: "EVQL"}, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "V", hits[0].LibraryDomainID)

	hits, err = aligner.Search(ctx, domain.Chain{ID: "X", Sequence: "QVQL"}, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "X", hits[0].ChainID, "hits are attributed to the searched chain")

	hits, err = aligner.Search(ctx, domain.Chain{ID: "L", Sequence: "DIQM"}, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Equal(t, 1, aligner.Calls("H"))
}
