package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aretw0/domaindetect/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
)

// Cache implements ports.HitCache on a SQLite database file.
type Cache struct {
	db   *sql.DB
	path string
}

var _ ports.HitCache = (*Cache)(nil)

// Open creates or opens the cache database at path, creating parent directories.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c := &Cache{db: db, path: path}
	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Put stores or replaces the hits for the key.
func (c *Cache) Put(ctx context.Context, key ports.HitKey, hits []domain.CandidateHit) error {
	if hits == nil {
		hits = []domain.CandidateHit{}
	}
	payload, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("marshalling hits: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO hits (library_version, chain_digest, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(library_version, chain_digest) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, key.LibraryVersion, key.ChainDigest, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving hits: %w", err)
	}
	return nil
}

// Get retrieves the hits for the key.
func (c *Cache) Get(ctx context.Context, key ports.HitKey) ([]domain.CandidateHit, error) {
	var payload string
	err := c.db.QueryRowContext(ctx, `
		SELECT payload FROM hits WHERE library_version = ? AND chain_digest = ?
	`, key.LibraryVersion, key.ChainDigest).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("getting hits: %w", err)
	}

	var hits []domain.CandidateHit
	if err := json.Unmarshal([]byte(payload), &hits); err != nil {
		return nil, fmt.Errorf("unmarshalling hits: %w", err)
	}
	return hits, nil
}

// Delete removes the entry for the key.
func (c *Cache) Delete(ctx context.Context, key ports.HitKey) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM hits WHERE library_version = ? AND chain_digest = ?
	`, key.LibraryVersion, key.ChainDigest)
	if err != nil {
		return fmt.Errorf("deleting hits: %w", err)
	}
	return nil
}

// Purge drops every entry cached for a library version and returns how many were removed.
func (c *Cache) Purge(ctx context.Context, version string) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM hits WHERE library_version = ?`, version)
	if err != nil {
		return 0, fmt.Errorf("purging hits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged hits: %w", err)
	}
	return int(n), nil
}

// migrate runs all pending migrations.
func (c *Cache) migrate(fsys fs.FS) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}
