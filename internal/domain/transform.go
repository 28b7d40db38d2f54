package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrSchema reports that the remote dataset does not have the expected shape.
// Loader runs fail fast on it; nothing downstream can recover a malformed payload.
var ErrSchema = errors.New("unexpected dataset schema")

const (
	entityColumn   = "Entity"
	yearColumn     = "Year"
	coveragePrefix = "coverage__"
)

// Snapshot is the output of one refresh run: the tidy dataset plus the time
// it was produced.
type Snapshot struct {
	Records     []CoverageRecord
	RefreshedAt time.Time
}

// NewSnapshot stamps a record set with the current clock time.
func NewSnapshot(records []CoverageRecord) Snapshot {
	return Snapshot{Records: records, RefreshedAt: clock.Now().UTC()}
}

// Melt converts the wide OWID table into tidy coverage records, one per
// (country, antigen, year) with a reported value. Unreported (empty) and
// unparsable cells are dropped, matching the upstream convention that a blank
// cell means "no estimate published". A missing Entity or Year column, or a
// header with no coverage columns at all, is an ErrSchema.
func Melt(table WideTable) ([]CoverageRecord, error) {
	entityIdx, yearIdx := -1, -1
	for i, col := range table.Header {
		switch col {
		case entityColumn:
			entityIdx = i
		case yearColumn:
			yearIdx = i
		}
	}
	if entityIdx < 0 || yearIdx < 0 {
		return nil, fmt.Errorf("%w: missing %q or %q column", ErrSchema, entityColumn, yearColumn)
	}

	type coverageColumn struct {
		index   int
		antigen string
	}
	var coverageCols []coverageColumn
	for i, col := range table.Header {
		if strings.HasPrefix(col, coveragePrefix) {
			coverageCols = append(coverageCols, coverageColumn{index: i, antigen: AntigenFromColumn(col)})
		}
	}
	if len(coverageCols) == 0 {
		return nil, fmt.Errorf("%w: no %s* columns in header", ErrSchema, coveragePrefix)
	}

	var records []CoverageRecord
	for _, row := range table.Rows {
		if entityIdx >= len(row) || yearIdx >= len(row) {
			continue
		}
		country := strings.TrimSpace(row[entityIdx])
		year, err := strconv.Atoi(strings.TrimSpace(row[yearIdx]))
		if country == "" || err != nil {
			continue
		}
		for _, cc := range coverageCols {
			if cc.index >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[cc.index])
			if raw == "" {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			records = append(records, CoverageRecord{
				Country:     country,
				Antigen:     cc.antigen,
				Year:        year,
				CoveragePct: value,
			})
		}
	}
	return records, nil
}

// AntigenFromColumn reduces an OWID coverage column short name to its antigen
// code: "coverage__dtp3_vaccinated_share_of_one_year_olds" -> "DTP3".
func AntigenFromColumn(col string) string {
	code := strings.TrimPrefix(col, coveragePrefix)
	if i := strings.IndexByte(code, '_'); i > 0 {
		code = code[:i]
	}
	return strings.ToUpper(code)
}

// Filter selects which records a refresh keeps. Empty allowlists keep
// everything; matching is case-insensitive.
type Filter struct {
	YearMin   int
	YearMax   int
	Antigens  []string
	Countries []string
}

// Keep reports whether a record passes the filter.
func (f Filter) Keep(rec CoverageRecord) bool {
	if rec.Year < f.YearMin || rec.Year > f.YearMax {
		return false
	}
	return matchesAny(rec.Antigen, f.Antigens) && matchesAny(rec.Country, f.Countries)
}

// Apply returns the records that pass the filter, preserving input order.
func (f Filter) Apply(records []CoverageRecord) []CoverageRecord {
	kept := make([]CoverageRecord, 0, len(records))
	for _, rec := range records {
		if f.Keep(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func matchesAny(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(value, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// SelectSeries returns the records for one (country, antigen) pair sorted by
// ascending year. Duplicate years collapse to the last value seen, so a
// rendered series never plots the same year twice.
func SelectSeries(records []CoverageRecord, country, antigen string) []CoverageRecord {
	byYear := make(map[int]CoverageRecord)
	for _, rec := range records {
		if strings.EqualFold(rec.Country, country) && strings.EqualFold(rec.Antigen, antigen) {
			byYear[rec.Year] = rec
		}
	}
	series := make([]CoverageRecord, 0, len(byYear))
	for _, rec := range byYear {
		series = append(series, rec)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series
}
