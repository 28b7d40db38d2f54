// Package artifact writes refresh byproducts: cleaned CSV exports and chart
// PNGs, kept alongside the store for CI archival. Nothing here is required
// for the viewer to work.
package artifact

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

// EncodeCSV writes records as delimited text with a header row, matching the
// store's column names.
func EncodeCSV(w io.Writer, records []domain.CoverageRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"country", "antigen", "year", "coverage_pct"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Country,
			rec.Antigen,
			strconv.Itoa(rec.Year),
			strconv.FormatFloat(rec.CoveragePct, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes records to a file, creating or truncating it.
func WriteCSV(path string, records []domain.CoverageRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := EncodeCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	return nil
}
