package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
)

// Cache implements ports.HitCache using the local filesystem.
// Entries live under BasePath/<library version>/<chain digest>.json.
type Cache struct {
	BasePath string
}

// NewCache creates a cache rooted at basePath.
// If basePath is empty, it defaults to ".domaindetect/hits".
func NewCache(basePath string) *Cache {
	if basePath == "" {
		basePath = filepath.Join(".domaindetect", "hits")
	}
	return &Cache{BasePath: basePath}
}

var unsafePath = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

func (c *Cache) path(key ports.HitKey) (string, string, error) {
	if key.ChainDigest == "" {
		return "", "", fmt.Errorf("cache key without chain digest")
	}
	version := key.LibraryVersion
	if version == "" {
		version = "_"
	}
	dir := filepath.Join(c.BasePath, unsafePath.Replace(version))
	return dir, filepath.Join(dir, unsafePath.Replace(key.ChainDigest)+".json"), nil
}

// Put persists the hits to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (c *Cache) Put(ctx context.Context, key ports.HitKey, hits []domain.CandidateHit) error {
	dir, destPath, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %w", err)
	}

	if hits == nil {
		hits = []domain.CandidateHit{}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hits: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing cache entry for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to cache entry: %w", err)
	}
	return nil
}

// Get reads the cached hits.
func (c *Cache) Get(ctx context.Context, key ports.HitKey) ([]domain.CandidateHit, error) {
	_, filePath, err := c.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var hits []domain.CandidateHit
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached hits: %w", err)
	}
	return hits, nil
}

// Delete removes the cache entry.
func (c *Cache) Delete(ctx context.Context, key ports.HitKey) error {
	_, filePath, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Purge removes the directory of a library version and returns how many entries it held.
func (c *Cache) Purge(ctx context.Context, version string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dir, _, err := c.path(ports.HitKey{LibraryVersion: version, ChainDigest: "_"})
	if err != nil {
		return 0, err
	}
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return len(entries), nil
}
