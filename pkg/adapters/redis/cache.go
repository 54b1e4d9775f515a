package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "domaindetect:hits:"

// Cache implements ports.HitCache using Redis.
// Entries of one library version are indexed in a set so they can be purged together.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Cache)

// WithTTL sets the expiration for cached hits.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a new Redis cache with options.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	cache := &Cache{
		client: client,
		prefix: defaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Client exposes the underlying client so a Locker can share the connection.
func (c *Cache) Client() *backend.Client {
	return c.client
}

func (c *Cache) key(k ports.HitKey) string {
	return c.prefix + k.String()
}

func (c *Cache) indexKey(version string) string {
	return c.prefix + "index:" + version
}

// Put stores the hits for the key.
func (c *Cache) Put(ctx context.Context, key ports.HitKey, hits []domain.CandidateHit) error {
	if hits == nil {
		hits = []domain.CandidateHit{}
	}
	data, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("failed to marshal hits: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.key(key), data, c.ttl)
	pipe.SAdd(ctx, c.indexKey(key.LibraryVersion), key.ChainDigest)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the hits for the key.
func (c *Cache) Get(ctx context.Context, key ports.HitKey) ([]domain.CandidateHit, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var hits []domain.CandidateHit
	if err := json.Unmarshal(val, &hits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hits: %w", err)
	}
	return hits, nil
}

// Delete removes the entry.
func (c *Cache) Delete(ctx context.Context, key ports.HitKey) error {
	pipe := c.client.Pipeline()

	pipe.Del(ctx, c.key(key))
	pipe.SRem(ctx, c.indexKey(key.LibraryVersion), key.ChainDigest)

	_, err := pipe.Exec(ctx)
	return err
}

// Purge drops every entry cached for a library version and returns how many were removed.
// Entries that already expired are pruned from the index too.
func (c *Cache) Purge(ctx context.Context, version string) (int, error) {
	digests, err := c.client.SMembers(ctx, c.indexKey(version)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list cached chains: %w", err)
	}
	if len(digests) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(digests)+1)
	for _, d := range digests {
		keys = append(keys, c.key(ports.HitKey{LibraryVersion: version, ChainDigest: d}))
	}
	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to purge hits: %w", err)
	}
	if err := c.client.Del(ctx, c.indexKey(version)).Err(); err != nil {
		return int(removed), fmt.Errorf("failed to drop index: %w", err)
	}
	return int(removed), nil
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
