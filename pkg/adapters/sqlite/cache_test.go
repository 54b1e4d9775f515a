package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/domaindetect/pkg/adapters/sqlite"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCache(t *testing.T, path string) *sqlite.Cache {
	t.Helper()
	cache, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestSQLiteCache_Contract(t *testing.T) {
	cache := openCache(t, filepath.Join(t.TempDir(), "hits.db"))
	ports.RunHitCacheContract(t, cache)
}

func TestSQLiteCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hits.db")
	ctx := context.Background()
	key := ports.HitKey{LibraryVersion: "v1", ChainDigest: "abc"}

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, key, []domain.CandidateHit{{ChainID: "H", LibraryDomainID: "V", Start: 1, End: 99, EValue: 1e-30}}))
	require.NoError(t, first.Close())

	second := openCache(t, path)
	assert.Equal(t, path, second.Path())

	hits, err := second.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 99, hits[0].End)
	assert.InDelta(t, 1e-30, hits[0].EValue, 1e-40)
}

func TestSQLiteCache_Purge(t *testing.T) {
	cache := openCache(t, filepath.Join(t.TempDir(), "hits.db"))
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, ports.HitKey{LibraryVersion: "old", ChainDigest: "a"}, nil))
	require.NoError(t, cache.Put(ctx, ports.HitKey{LibraryVersion: "old", ChainDigest: "b"}, nil))
	require.NoError(t, cache.Put(ctx, ports.HitKey{LibraryVersion: "new", ChainDigest: "a"}, nil))

	n, err := cache.Purge(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = cache.Get(ctx, ports.HitKey{LibraryVersion: "old", ChainDigest: "a"})
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	_, err = cache.Get(ctx, ports.HitKey{LibraryVersion: "new", ChainDigest: "a"})
	assert.NoError(t, err)
}
