package domaindetect_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/domaindetect"
	"github.com/aretw0/domaindetect/internal/testutils"
	"github.com/aretw0/domaindetect/pkg/adapters/memory"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libraryYAML = `version: "lib-1"
domains:
  - id: V
    kind: variable
    length: 60
  - id: C
    kind: constant
    length: 65
`

func vcAligner() *memory.Aligner {
	a := memory.NewAligner()
	a.SetHits("H",
		domain.CandidateHit{LibraryDomainID: "V", Start: 0, End: 60, PercentCoverage: 100, PercentIdentity: 95, EValue: 1e-30},
		domain.CandidateHit{LibraryDomainID: "C", Start: 55, End: 120, PercentCoverage: 100, PercentIdentity: 90, EValue: 1e-30},
	)
	return a
}

func writeLibrary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(libraryYAML), 0644))
	return path
}

func TestDetector_Annotate(t *testing.T) {
	det, err := domaindetect.New(writeLibrary(t), domaindetect.WithAligner(vcAligner()))
	require.NoError(t, err)
	defer det.Close()

	snap, err := det.Annotate(context.Background(), []domain.Chain{
		{ID: "H", Sequence: strings.Repeat("A", 120)},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCertified, snap.State)
	assert.Equal(t, "lib-1", snap.LibraryVersion)
	require.Len(t, snap.Results, 1)

	as := snap.Results[0].Assignments
	require.Len(t, as, 2)
	assert.Equal(t, "V", as[0].DomainID)
	assert.Equal(t, 60, as[0].End)
	assert.Equal(t, "C", as[1].DomainID)
	assert.Equal(t, 60, as[1].Start, "lower-rank hit is truncated at the higher-rank end")

	// One-shot sessions are not kept around.
	assert.Empty(t, det.Manager().List())
}

func TestDetector_InvalidLibraryFailsBeforeSearch(t *testing.T) {
	aligner := vcAligner()
	det, err := domaindetect.New(filepath.Join(t.TempDir(), "missing.yaml"), domaindetect.WithAligner(aligner))
	require.NoError(t, err)

	snap, err := det.Annotate(context.Background(), []domain.Chain{{ID: "H", Sequence: "AAAA"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLibraryLoadFailed))
	assert.True(t, domain.IsFatal(err))
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Zero(t, aligner.Calls("H"))
}

func TestDetector_CachesHits(t *testing.T) {
	cache := memory.NewCache()
	aligner := vcAligner()
	det, err := domaindetect.New(writeLibrary(t),
		domaindetect.WithAligner(aligner),
		domaindetect.WithHitCache(cache),
	)
	require.NoError(t, err)

	chains := []domain.Chain{{ID: "H", Sequence: strings.Repeat("A", 120)}}
	_, err = det.Annotate(context.Background(), chains)
	require.NoError(t, err)
	_, err = det.Annotate(context.Background(), chains)
	require.NoError(t, err)

	assert.Equal(t, 1, aligner.Calls("H"))
	assert.Equal(t, 1, cache.Len())
}

func TestDetector_LoamDirectory(t *testing.T) {
	dir, _ := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, map[string]string{
		"V.md": "---\nkind: variable\nlength: 60\n---\n",
		"C.md": "---\nkind: constant\nlength: 65\n---\n",
	})

	det, err := domaindetect.New(dir, domaindetect.WithAligner(vcAligner()))
	require.NoError(t, err)
	assert.NotNil(t, det.Watcher())

	lib, err := det.Library(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())
	_, ok := lib.Domain("V")
	assert.True(t, ok)
}

func TestDetector_Options(t *testing.T) {
	t.Run("aligner is required", func(t *testing.T) {
		_, err := domaindetect.New(writeLibrary(t))
		assert.Error(t, err)
	})

	t.Run("path or loader is required", func(t *testing.T) {
		_, err := domaindetect.New("", domaindetect.WithAligner(vcAligner()))
		assert.Error(t, err)
	})

	t.Run("custom loader", func(t *testing.T) {
		loader := memory.NewLoader("mem-1", domain.LibraryDomain{ID: "V", Length: 60})
		det, err := domaindetect.New("", domaindetect.WithLoader(loader), domaindetect.WithAligner(ports.AlignerFunc(
			func(ctx context.Context, chain domain.Chain, lib *domain.Library) ([]domain.CandidateHit, error) {
				return nil, nil
			})))
		require.NoError(t, err)
		assert.Nil(t, det.Watcher())

		snap, err := det.Annotate(context.Background(), []domain.Chain{{ID: "X", Sequence: "AAAA"}})
		require.NoError(t, err, "zero hits and short chains are not errors")
		assert.Equal(t, domain.StateCertified, snap.State)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := domain.DefaultConfig()
		cfg.SkipHitPercentCoverageThreshold = 101
		_, err := domaindetect.New(writeLibrary(t), domaindetect.WithAligner(vcAligner()), domaindetect.WithConfig(cfg))
		var cfgErr *domain.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}
