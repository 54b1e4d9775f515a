package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHitCacheContract runs a suite of tests to verify that a HitCache implementation
// adheres to the defined interface contract.
func RunHitCacheContract(t *testing.T, cache HitCache) {
	ctx := context.Background()
	key := HitKey{
		LibraryVersion: "contract-" + time.Now().Format("20060102150405"),
		ChainDigest:    domain.Chain{ID: "H", Sequence: "EVQLVESGGGLVQPGGSLRLSCAAS"}.Digest(),
	}
	hits := []domain.CandidateHit{
		{ChainID: "H", LibraryDomainID: "IGHV3-23", Start: 0, End: 98, PercentIdentity: 96.5, PercentCoverage: 100, EValue: 1e-50},
		{ChainID: "H", LibraryDomainID: "IGHG1-CH1", Start: 120, End: 218, PercentIdentity: 100, PercentCoverage: 99, EValue: 3e-42},
	}

	t.Run("Put and Get", func(t *testing.T) {
		err := cache.Put(ctx, key, hits)
		require.NoError(t, err, "Put should not return error")

		loaded, err := cache.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, hits, loaded)
	})

	t.Run("Put replaces", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key, hits[:1]))

		loaded, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, hits[:1], loaded)
	})

	t.Run("Empty hit list is cached", func(t *testing.T) {
		empty := HitKey{LibraryVersion: key.LibraryVersion, ChainDigest: "empty"}
		defer func() { _ = cache.Delete(ctx, empty) }()

		require.NoError(t, cache.Put(ctx, empty, nil))
		loaded, err := cache.Get(ctx, empty)
		require.NoError(t, err, "a chain without hits is a valid cache entry")
		assert.Empty(t, loaded)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := cache.Get(ctx, HitKey{LibraryVersion: key.LibraryVersion, ChainDigest: "missing"})
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("Library version is part of the key", func(t *testing.T) {
		_, err := cache.Get(ctx, HitKey{LibraryVersion: key.LibraryVersion + "-next", ChainDigest: key.ChainDigest})
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key, hits))

		err := cache.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = cache.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrCacheMiss, "Get after Delete should return ErrCacheMiss")

		assert.NoError(t, cache.Delete(ctx, key), "Delete of a missing key is a no-op")
	})
}
