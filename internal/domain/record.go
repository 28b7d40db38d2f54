package domain

// CoverageRecord is one tidy observation: the share of a country's target
// population that received a given antigen in a given year.
type CoverageRecord struct {
	Country     string  `json:"country"`
	Antigen     string  `json:"antigen"`
	Year        int     `json:"year"`
	CoveragePct float64 `json:"coverage_pct"`
}

// WideTable is the raw OWID grapher payload: one row per (country, year)
// with one coverage column per antigen.
type WideTable struct {
	Header []string
	Rows   [][]string
}
