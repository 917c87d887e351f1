package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS checkouts (
    id         TEXT PRIMARY KEY,
    path       TEXT NOT NULL,
    version    TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (path, version)
);

CREATE TABLE IF NOT EXISTS files (
    checkout_id  TEXT NOT NULL REFERENCES checkouts(id) ON DELETE CASCADE,
    logical_path TEXT NOT NULL,
    content      BLOB NOT NULL,
    PRIMARY KEY (checkout_id, logical_path)
);

CREATE INDEX IF NOT EXISTS idx_checkouts_path ON checkouts(path);
`

// Index is a SQLite-backed cache of resolved package checkouts.
//
// Uses WAL mode for concurrent read access. Each cached (path,
// version) pair is one checkout row identified by a UUIDv7, with the
// package's files attached.
type Index struct {
	db *sql.DB
}

// OpenIndex creates or opens the index database at the given path.
// Idempotent; applies pragmas and schema on every open.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to index: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent fills.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the database connection.
func (ix *Index) Close() error {
	if ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Versions lists every cached version of a package path.
func (ix *Index) Versions(ctx context.Context, path string) ([]vrange.Version, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT version FROM checkouts WHERE path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("querying versions of %s: %w", path, err)
	}
	defer rows.Close()

	var out []vrange.Version
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := vrange.ParseVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt index: version %q of %s: %w", raw, path, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Get loads a cached checkout. ok is false on a cache miss.
func (ix *Index) Get(ctx context.Context, path string, version vrange.Version) ([]*source.Buffer, bool, error) {
	var checkoutID string
	err := ix.db.QueryRowContext(ctx,
		`SELECT id FROM checkouts WHERE path = ? AND version = ?`,
		path, version.String()).Scan(&checkoutID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("looking up %s@%s: %w", path, version, err)
	}

	rows, err := ix.db.QueryContext(ctx,
		`SELECT logical_path, content FROM files WHERE checkout_id = ? ORDER BY logical_path`,
		checkoutID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var files []*source.Buffer
	for rows.Next() {
		var buf source.Buffer
		if err := rows.Scan(&buf.Path, &buf.Content); err != nil {
			return nil, false, err
		}
		files = append(files, &buf)
	}
	return files, true, rows.Err()
}

// Put stores a checkout. Storing an already-cached (path, version) is
// a no-op; cached content is immutable.
func (ix *Index) Put(ctx context.Context, path string, version vrange.Version, files []*source.Buffer) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	checkoutID := uuid.Must(uuid.NewV7()).String()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO checkouts (id, path, version, created_at) VALUES (?, ?, ?, ?)`,
		checkoutID, path, version.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("caching %s@%s: %w", path, version, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return err // already cached
	}
	for _, f := range files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (checkout_id, logical_path, content) VALUES (?, ?, ?)`,
			checkoutID, f.Path, f.Content); err != nil {
			return fmt.Errorf("caching file %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// Cached is a read-through caching resolver: hits come from the index,
// misses go to the inner resolver and are written back.
type Cached struct {
	inner Resolver
	index *Index
}

// NewCached wraps a resolver with an index cache.
func NewCached(inner Resolver, index *Index) *Cached {
	return &Cached{inner: inner, index: index}
}

// Resolve serves the highest cached version within the range, falling
// back to the inner resolver on a miss.
func (c *Cached) Resolve(ctx context.Context, path string, rng vrange.Range) (Resolved, error) {
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}
	versions, err := c.index.Versions(ctx, path)
	if err != nil {
		return Resolved{}, err
	}
	var best vrange.Version
	found := false
	for _, v := range versions {
		if !rng.Matches(v) {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best = v
			found = true
		}
	}
	if found {
		files, ok, err := c.index.Get(ctx, path, best)
		if err != nil {
			return Resolved{}, err
		}
		if ok {
			return Resolved{Version: best, Files: files}, nil
		}
	}

	res, err := c.inner.Resolve(ctx, path, rng)
	if err != nil {
		return Resolved{}, err
	}
	if !res.Version.IsZero() {
		if err := c.index.Put(ctx, path, res.Version, res.Files); err != nil {
			return Resolved{}, err
		}
	}
	return res, nil
}
