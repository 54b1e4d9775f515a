package ports

import (
	"context"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// HitKey identifies a cached alignment: hits only depend on the library and the sequence.
type HitKey struct {
	LibraryVersion string
	ChainDigest    string
}

// String returns the canonical flat form used by key-value backends.
func (k HitKey) String() string {
	return k.LibraryVersion + "/" + k.ChainDigest
}

// KeyFor builds the cache key of a chain searched against lib.
func KeyFor(lib *domain.Library, chain domain.Chain) HitKey {
	version := ""
	if lib != nil {
		version = lib.Version
	}
	return HitKey{LibraryVersion: version, ChainDigest: chain.Digest()}
}

// HitCache defines the interface for caching alignment results, so reannotating an
// unchanged chain never reaches the aligner again.
type HitCache interface {
	// Put stores the hits for the key, replacing any previous entry.
	Put(ctx context.Context, key HitKey, hits []domain.CandidateHit) error

	// Get retrieves the hits for the key.
	// Returns domain.ErrCacheMiss if nothing is cached.
	Get(ctx context.Context, key HitKey) ([]domain.CandidateHit, error)

	// Delete removes the entry for the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key HitKey) error
}

// PurgeableCache is implemented by caches that can drop every entry of a stale library version.
type PurgeableCache interface {
	HitCache
	Purge(ctx context.Context, libraryVersion string) (int, error)
}
