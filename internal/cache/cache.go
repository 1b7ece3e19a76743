// Package cache stores classification results so unchanged projects are not
// rescanned on repeated runs.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"dlldepends/internal/classify"
)

// Dir is the cache directory created under the base directory.
const Dir = ".dlldepends/cache"

// Cache maps (project path, content digest, target) to a reference kind.
// A row whose digest no longer matches the document is treated as a miss
// and overwritten.
type Cache struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS classifications (
	path TEXT NOT NULL,
	target TEXT NOT NULL,
	digest TEXT NOT NULL,
	kind TEXT NOT NULL,
	PRIMARY KEY (path, target)
);
`

// Open opens or creates the cache database in baseDir.
// The database is stored at {baseDir}/.dlldepends/cache/classify.db
func Open(baseDir string) (*Cache, error) {
	cacheDir := filepath.Join(baseDir, filepath.FromSlash(Dir))
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "classify.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	// sqlite allows one writer; workers share a single connection.
	db.SetMaxOpenConns(1)

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}

	return &Cache{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached kind for a project if its digest is current.
func (c *Cache) Get(path, digest, target string) (classify.Kind, bool, error) {
	var cachedDigest, kindName string
	err := c.db.QueryRow(
		"SELECT digest, kind FROM classifications WHERE path = ? AND target = ?",
		path, target,
	).Scan(&cachedDigest, &kindName)

	if errors.Is(err, sql.ErrNoRows) {
		return classify.None, false, nil
	}
	if err != nil {
		return classify.None, false, fmt.Errorf("querying cache: %w", err)
	}
	if cachedDigest != digest {
		return classify.None, false, nil // Stale
	}

	kind, ok := classify.ParseKind(kindName)
	if !ok {
		return classify.None, false, nil
	}
	return kind, true, nil
}

// Put stores the kind computed for a project.
func (c *Cache) Put(path, digest, target string, kind classify.Kind) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO classifications (path, target, digest, kind)
		 VALUES (?, ?, ?, ?)`,
		path, target, digest, kind.String(),
	)
	if err != nil {
		return fmt.Errorf("updating cache: %w", err)
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	TotalEntries int64
}

// Stats counts the stored classifications.
func (c *Cache) Stats() (*Stats, error) {
	var count int64
	err := c.db.QueryRow("SELECT COUNT(*) FROM classifications").Scan(&count)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalEntries: count}, nil
}
