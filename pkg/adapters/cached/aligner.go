// Package cached decorates an aligner with a hit cache so unchanged sequences are never searched twice.
package cached

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
)

const defaultLockTTL = 2 * time.Minute

// Stats counts cache outcomes.
type Stats struct {
	Hits   int64
	Misses int64
}

// Aligner wraps an inner aligner with a read-through cache keyed by library version and
// sequence digest. With a locker, concurrent misses for the same key search only once.
type Aligner struct {
	inner   ports.Aligner
	cache   ports.HitCache
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ ports.Aligner = (*Aligner)(nil)

// Option configures the decorator.
type Option func(*Aligner)

// WithLocker serializes misses of the same key across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *Aligner) {
		a.locker = l
	}
}

// WithLockTTL bounds how long a crashed searcher can hold a key.
func WithLockTTL(ttl time.Duration) Option {
	return func(a *Aligner) {
		a.lockTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aligner) {
		a.logger = logger
	}
}

// New wraps inner with cache.
func New(inner ports.Aligner, cache ports.HitCache, opts ...Option) *Aligner {
	a := &Aligner{
		inner:   inner,
		cache:   cache,
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stats returns the cache counters.
func (a *Aligner) Stats() Stats {
	return Stats{Hits: a.hits.Load(), Misses: a.misses.Load()}
}

// Search returns cached hits when present, otherwise searches and stores the result.
// Cache failures degrade to a plain search.
func (a *Aligner) Search(ctx context.Context, chain domain.Chain, lib *domain.Library) ([]domain.CandidateHit, error) {
	key := ports.KeyFor(lib, chain)

	if found, ok := a.lookup(ctx, key, chain); ok {
		return found, nil
	}

	if a.locker != nil {
		unlock, err := a.locker.Lock(ctx, "hits:"+key.String(), a.lockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("Failed to release hit lock (will expire via TTL)", "chain_id", chain.ID, "err", err)
			}
		}()

		// Another searcher may have filled the entry while we waited.
		if found, ok := a.lookup(ctx, key, chain); ok {
			return found, nil
		}
	}

	a.misses.Add(1)
	found, err := a.inner.Search(ctx, chain, lib)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Put(ctx, key, found); err != nil {
		a.logger.Warn("Failed to cache hits", "chain_id", chain.ID, "err", err)
	}
	return found, nil
}

func (a *Aligner) lookup(ctx context.Context, key ports.HitKey, chain domain.Chain) ([]domain.CandidateHit, bool) {
	found, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			a.logger.Warn("Hit cache lookup failed", "chain_id", chain.ID, "err", err)
		}
		return nil, false
	}
	a.hits.Add(1)
	a.logger.Debug("Hit cache hit", "chain_id", chain.ID, "library_version", key.LibraryVersion)

	// Entries are shared by every chain with the same sequence.
	for i := range found {
		found[i].ChainID = chain.ID
	}
	return found, true
}
