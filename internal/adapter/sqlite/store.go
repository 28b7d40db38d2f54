// Package sqlite persists the tidy coverage dataset in a single-file SQLite
// store. The loader replaces the whole file atomically on every run; the
// viewer only ever reads.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, registers as "sqlite"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

// Store is a read-only handle on the coverage store.
type Store struct {
	db *sql.DB
}

// Open opens the store read-only. The file does not have to exist yet: the
// connection is lazy, and queries against a missing store surface as errors
// the caller renders as an unavailable state rather than a crash.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// The loader replaces the file via rename; pooled connections would keep
	// reading the old inode. Forcing a fresh connection per query makes every
	// query see the current file.
	db.SetMaxIdleConns(0)

	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Countries returns the distinct countries present in the store, sorted.
func (s *Store) Countries(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT country FROM coverage ORDER BY country`)
}

// Antigens returns the distinct antigens reported for a country, sorted.
func (s *Store) Antigens(ctx context.Context, country string) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT antigen FROM coverage WHERE country = ? ORDER BY antigen`, country)
}

func (s *Store) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query distinct values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return values, nil
}

// Series returns the coverage series for one (country, antigen) pair in
// ascending year order. An absent pair yields an empty slice, not an error.
func (s *Store) Series(ctx context.Context, country, antigen string) ([]domain.CoverageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, antigen, year, coverage_pct
		FROM coverage
		WHERE country = ? AND antigen = ?
		ORDER BY year ASC`, country, antigen)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var series []domain.CoverageRecord
	for rows.Next() {
		var rec domain.CoverageRecord
		if err := rows.Scan(&rec.Country, &rec.Antigen, &rec.Year, &rec.CoveragePct); err != nil {
			return nil, fmt.Errorf("scan coverage row: %w", err)
		}
		series = append(series, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	return series, nil
}

// Count returns the total number of coverage rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coverage`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count coverage rows: %w", err)
	}
	return n, nil
}

// LastRefreshed returns the stamp of the run that produced the current store.
// A store without refresh metadata yields the zero time and no error.
func (s *Store) LastRefreshed(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT refreshed_at FROM refresh_meta WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query refresh metadata: %w", err)
	}

	stamp, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse refresh stamp: %w", err)
	}
	return stamp, nil
}
