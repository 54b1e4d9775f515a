package loam

import (
	"context"
	"testing"

	"github.com/aretw0/domaindetect/internal/testutils"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports/tests"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Contract(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	ctx := context.Background()

	docs := []core.Document{
		{
			ID: "IGHV3-23.md",
			Content: `---
id: IGHV3-23
kind: variable
chain_type: heavy
length: 98
---
EVQLLESGGGLVQPGGSLRLSCAASGFTFSSYAMSWVRQAPGKGLEWVSAISGSGGSTYYADSVKGRFTISRDNSKNTLYLQMNSLRAEDTAVYYCAK`,
		},
		{
			ID: "IGHG1-CH1.md",
			Content: `---
id: IGHG1-CH1
kind: constant
---
ASTKGPSVFP LAPSSKSTSG
GTAALGCLVK`,
		},
	}
	for _, doc := range docs {
		require.NoError(t, repo.Save(ctx, doc))
	}

	loader := New(loam.NewTypedRepository[DomainMetadata](repo), "loam-test")

	tests.LibraryLoaderContractTest(t, loader, []domain.LibraryDomain{
		{ID: "IGHV3-23", Length: 98},
		{ID: "IGHG1-CH1", Sequence: "ASTKGPSVFPLAPSSKSTSGGTAALGCLVK"},
	})
}

func TestLoader_Load_NormalizesIDs(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	testutils.WriteFiles(t, tmpDir, map[string]string{
		"v1.md": `---
id: v1.md
kind: Variable
---
QVQL`,
		"c1.json": `{
  "id": "c1.json",
  "kind": "constant",
  "sequence": "ASTK"
}`,
		"implicit.md": `---
kind: hinge
---
EPKSC`,
	})

	loader := New(loam.NewTypedRepository[DomainMetadata](repo), "v")
	lib, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, lib.Len())
	assert.Equal(t, []string{"c1", "implicit", "v1"}, []string{lib.Domains[0].ID, lib.Domains[1].ID, lib.Domains[2].ID})

	v1, ok := lib.Domain("v1")
	require.True(t, ok)
	assert.Equal(t, domain.KindVariable, v1.Kind)
	assert.Equal(t, "QVQL", v1.Sequence)

	implicit, ok := lib.Domain("implicit")
	require.True(t, ok)
	assert.Equal(t, domain.KindHinge, implicit.Kind)
	assert.Equal(t, 5, implicit.CanonicalLength())

	c1, _ := lib.Domain("c1")
	assert.Equal(t, "ASTK", c1.Sequence)
}

func TestLoader_Load_DetectsCollisions(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	testutils.WriteFiles(t, tmpDir, map[string]string{
		"foo.md": `---
id: foo
---
QVQL`,
		"foo.json": `{
  "id": "foo",
  "sequence": "EVQL"
}`,
	})

	loader := New(loam.NewTypedRepository[DomainMetadata](repo), "v")
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLibraryLoadFailed)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(t.TempDir()+"/missing", "v")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLibraryLoadFailed)
	assert.True(t, domain.IsFatal(err))
}

func TestOpen_LoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"lib/kappa.md": `---
id: IGKC
kind: constant
---
RTVAAPSVFIFPPSDEQLKSGTASVVCLLNNFYPREAKVQWKVDNALQSGNSQESVTEQDSKDSTYSLSSTLTLSKADYEKHKVYACEVTHQGLSSPVTKSFNRGEC`,
	})

	loader, err := Open(dir, "")
	require.NoError(t, err)

	lib, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Len())
	assert.NotEmpty(t, lib.Version)

	d, ok := lib.Domain("IGKC")
	require.True(t, ok)
	assert.Equal(t, 107, d.CanonicalLength())
}

func TestCleanSequence(t *testing.T) {
	assert.Equal(t, "QVQLVQ", cleanSequence(">IGHV1\nqvq lvq\n"))
	assert.Equal(t, "ASTK", cleanSequence("1 AS\n11 TK"))
	assert.Empty(t, cleanSequence(""))
}
