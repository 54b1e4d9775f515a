package file_test

import (
	"context"
	"testing"

	"github.com/aretw0/domaindetect/internal/hits"
	"github.com/aretw0/domaindetect/pkg/adapters/file"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHitsAligner(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hits.tsv",
		"H\tIGHV3-23\t96.9\t98\t3\t0\t1\t98\t1\t98\t2e-60\t190\t100\n"+
			"L\tIGKV1-39\t91.2\t95\t8\t0\t1\t95\t1\t95\t4e-55\t170\t100\n")

	aligner, err := file.NewHitsAligner(context.Background(), path, "", hits.Options{})
	require.NoError(t, err)

	found, err := aligner.Search(context.Background(), domain.Chain{ID: "L", Sequence: "DIQMTQ"}, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "IGKV1-39", found[0].LibraryDomainID)

	_, err = file.ReadHits(writeFile(t, dir, "hits.json", `{"x":1}`), "", hits.Options{})
	assert.Error(t, err)

	_, err = file.ReadHits(dir+"/missing.tsv", "", hits.Options{})
	assert.Error(t, err)
}
