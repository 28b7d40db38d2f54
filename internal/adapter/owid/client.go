// Package owid fetches the Our World in Data global vaccination coverage CSV.
package owid

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

// Client downloads the coverage dataset from the OWID grapher endpoint.
// It implements pipeline.Extractor.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an OWID dataset client. The timeout bounds the whole
// fetch, including the body read, so a stalled download cannot hang a
// scheduled run indefinitely.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Extract downloads the coverage CSV and parses it into a wide table.
func (c *Client) Extract(ctx context.Context) (domain.WideTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.WideTable{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WideTable{}, fmt.Errorf("fetch coverage dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WideTable{}, fmt.Errorf("owid error: status %d: %s", resp.StatusCode, body)
	}

	reader := csv.NewReader(resp.Body)
	// Rows are validated against the header during the melt, not here.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return domain.WideTable{}, fmt.Errorf("read csv header: %w", err)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return domain.WideTable{}, fmt.Errorf("read csv rows: %w", err)
	}

	c.logger.Info("coverage dataset fetched", "rows", len(rows), "columns", len(header))
	return domain.WideTable{Header: header, Rows: rows}, nil
}
