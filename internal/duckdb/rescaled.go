package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// WriteRescaled stores a rescaled table under key, replacing any table
// previously stored under the same key. Rows are appended with the Appender
// API.
func (s *Store) WriteRescaled(key, gene, transcriptColumn string, t *table.Table) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM rescaled_features WHERE cache_key=?", key); err != nil {
		return fmt.Errorf("clear rescaled features: %w", err)
	}
	if _, err := conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO rescaled_tables VALUES (?, ?, ?, ?)",
		key, gene, strings.Join(t.Columns(), "\t"), time.Now().UTC()); err != nil {
		return fmt.Errorf("write rescaled table: %w", err)
	}
	if t.Len() == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "rescaled_features")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	_, records := t.Records()
	for i, f := range t.Rows() {
		if err := appender.AppendRow(
			key, int64(i), f.Seqnames, f.Start, f.End, f.Strand, f.Type,
			f.Get(transcriptColumn), f.Rescaled, f.RescaledStart, f.RescaledEnd,
			strings.Join(records[i], "\t"),
		); err != nil {
			return fmt.Errorf("append rescaled feature: %w", err)
		}
	}

	return appender.Flush()
}

// LookupRescaled returns the table stored under key. The boolean is false
// when nothing is cached for the key.
func (s *Store) LookupRescaled(key string) (*table.Table, bool, error) {
	var columns string
	err := s.db.QueryRow("SELECT columns FROM rescaled_tables WHERE cache_key=?", key).Scan(&columns)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query rescaled table: %w", err)
	}
	header := strings.Split(columns, "\t")

	rows, err := s.db.Query(
		"SELECT record FROM rescaled_features WHERE cache_key=? ORDER BY row_idx", key)
	if err != nil {
		return nil, false, fmt.Errorf("query rescaled features: %w", err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, false, fmt.Errorf("scan rescaled feature: %w", err)
		}
		records = append(records, strings.Split(record, "\t"))
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate rescaled features: %w", err)
	}

	t, err := table.FromRecords(header, records)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached table: %w", err)
	}
	return t, true, nil
}

// Keys returns the cached keys for a gene, or every key when gene is empty.
func (s *Store) Keys(gene string) ([]string, error) {
	query := "SELECT cache_key FROM rescaled_tables"
	var args []any
	if gene != "" {
		query += " WHERE gene=?"
		args = append(args, gene)
	}
	query += " ORDER BY created_at, cache_key"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache keys: %w", err)
	}
	return keys, nil
}

// ClearRescaled removes all cached tables.
func (s *Store) ClearRescaled() error {
	if _, err := s.db.Exec("DELETE FROM rescaled_features"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM rescaled_tables")
	return err
}
