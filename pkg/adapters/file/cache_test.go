package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/domaindetect/pkg/adapters/file"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Contract(t *testing.T) {
	ports.RunHitCacheContract(t, file.NewCache(t.TempDir()))
}

func TestCache_Layout(t *testing.T) {
	dir := t.TempDir()
	cache := file.NewCache(dir)
	key := ports.HitKey{LibraryVersion: "imgt/2024:1", ChainDigest: "abc"}

	require.NoError(t, cache.Put(context.Background(), key, []domain.CandidateHit{{LibraryDomainID: "V"}}))

	_, err := os.Stat(filepath.Join(dir, "imgt_2024_1", "abc.json"))
	assert.NoError(t, err, "version separators are flattened into one directory")

	entries, err := os.ReadDir(filepath.Join(dir, "imgt_2024_1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	assert.Error(t, cache.Put(context.Background(), ports.HitKey{LibraryVersion: "v"}, nil))
}

func TestCache_Purge(t *testing.T) {
	cache := file.NewCache(t.TempDir())
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, ports.HitKey{LibraryVersion: "old", ChainDigest: "a"}, nil))
	require.NoError(t, cache.Put(ctx, ports.HitKey{LibraryVersion: "old", ChainDigest: "b"}, nil))
	require.NoError(t, cache.Put(ctx, ports.HitKey{LibraryVersion: "new", ChainDigest: "a"}, nil))

	n, err := cache.Purge(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = cache.Get(ctx, ports.HitKey{LibraryVersion: "old", ChainDigest: "b"})
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	_, err = cache.Get(ctx, ports.HitKey{LibraryVersion: "new", ChainDigest: "a"})
	assert.NoError(t, err)

	n, err = cache.Purge(ctx, "never-cached")
	require.NoError(t, err)
	assert.Zero(t, n)
}
