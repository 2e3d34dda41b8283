// Package duckdb caches rescaled annotation tables in DuckDB so repeated runs
// over the same annotation skip the shortening pipeline.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for caching rescaled tables.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
// rescaled_tables holds one schema per cache key; rescaled_features holds the
// rows, with typed core columns for querying and the full tab-joined record
// for reconstruction.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS rescaled_tables (
		cache_key VARCHAR PRIMARY KEY,
		gene VARCHAR,
		columns VARCHAR,
		created_at TIMESTAMP
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS rescaled_features (
		cache_key VARCHAR,
		row_idx BIGINT,
		seqnames VARCHAR,
		start BIGINT,
		"end" BIGINT,
		strand VARCHAR,
		type VARCHAR,
		transcript_id VARCHAR,
		rescaled BOOLEAN,
		rescaled_start BIGINT,
		rescaled_end BIGINT,
		record VARCHAR,
		PRIMARY KEY (cache_key, row_idx)
	)`)
	return err
}
