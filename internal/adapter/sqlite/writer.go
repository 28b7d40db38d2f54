package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS coverage (
		country      TEXT NOT NULL,
		antigen      TEXT NOT NULL,
		year         INTEGER NOT NULL,
		coverage_pct REAL,
		PRIMARY KEY (country, antigen, year)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_meta (
		id           INTEGER PRIMARY KEY CHECK (id = 1),
		refreshed_at TEXT NOT NULL,
		row_count    INTEGER NOT NULL
	)`,
}

// Writer replaces the store file on every load. It implements pipeline.Loader.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a store writer targeting the given file path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Load writes the snapshot into a temp file next to the target and atomically
// renames it over the store. A failed run leaves the previous store intact,
// and readers never observe a half-written file.
func (w *Writer) Load(ctx context.Context, snap domain.Snapshot) error {
	tmp := w.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale temp store: %w", err)
	}

	if err := w.writeTemp(ctx, tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace store: %w", err)
	}

	w.logger.Info("store replaced", "path", w.path, "rows", len(snap.Records))
	return nil
}

func (w *Writer) writeTemp(ctx context.Context, tmp string, snap domain.Snapshot) error {
	db, err := sql.Open("sqlite", "file:"+tmp)
	if err != nil {
		return fmt.Errorf("open temp store: %w", err)
	}
	defer db.Close()

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO coverage (country, antigen, year, coverage_pct)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range snap.Records {
		if _, err := stmt.ExecContext(ctx, rec.Country, rec.Antigen, rec.Year, rec.CoveragePct); err != nil {
			return fmt.Errorf("insert coverage row: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO refresh_meta (id, refreshed_at, row_count)
		VALUES (1, ?, ?)`,
		snap.RefreshedAt.Format(time.RFC3339), len(snap.Records)); err != nil {
		return fmt.Errorf("record refresh metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}
