// Command seed writes a small built-in sample dataset into a coverage store
// so the viewer can be exercised without a network fetch.
//
// Usage:
//
//	go run ./cmd/seed -db vaccination.db
//	go run ./cmd/seed -db vaccination.db -csv sample_clean.csv
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/artifact"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

// sampleSpec describes one synthetic series: a linear coverage ramp with a
// step change at the campaign year, enough to light up the dashboard's chart
// and before/after analysis.
type sampleSpec struct {
	country string
	antigen string
	start   float64 // coverage in firstYear
	slope   float64 // percentage points per year
	bump    float64 // step change at campaignYear
}

const (
	firstYear    = 2008
	lastYear     = 2023
	campaignYear = 2017
)

var samples = []sampleSpec{
	{country: "Ghana", antigen: "DTP3", start: 70, slope: 0.8, bump: 6},
	{country: "Ghana", antigen: "MCV1", start: 65, slope: 1.0, bump: 4},
	{country: "Kenya", antigen: "DTP3", start: 75, slope: 0.5, bump: 3},
	{country: "Kenya", antigen: "POL3", start: 72, slope: 0.6, bump: 2},
	{country: "India", antigen: "DTP3", start: 62, slope: 1.5, bump: 8},
	{country: "India", antigen: "BCG", start: 80, slope: 0.7, bump: 1},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "vaccination.db", "path of the coverage store to write")
	csvPath := flag.String("csv", "", "optional path for a cleaned CSV export of the sample")
	flag.Parse()

	records := buildSample()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	writer := sqlite.NewWriter(*dbPath, logger)
	if err := writer.Load(context.Background(), domain.NewSnapshot(records)); err != nil {
		return err
	}
	logger.Info("sample store written", "path", *dbPath, "rows", len(records))

	if *csvPath != "" {
		if err := artifact.WriteCSV(*csvPath, records); err != nil {
			return err
		}
		logger.Info("sample export written", "path", *csvPath)
	}
	return nil
}

func buildSample() []domain.CoverageRecord {
	var records []domain.CoverageRecord
	for _, s := range samples {
		for year := firstYear; year <= lastYear; year++ {
			value := s.start + s.slope*float64(year-firstYear)
			if year >= campaignYear {
				value += s.bump
			}
			if value > 99 {
				value = 99
			}
			records = append(records, domain.CoverageRecord{
				Country:     s.country,
				Antigen:     s.antigen,
				Year:        year,
				CoveragePct: value,
			})
		}
	}
	return records
}
