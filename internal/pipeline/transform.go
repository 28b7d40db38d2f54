package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/observability"
)

// CoverageTransformer implements Transformer using the domain melt plus the
// configured refresh filter.
type CoverageTransformer struct {
	filter  domain.Filter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a CoverageTransformer with the given filter.
func NewTransformer(filter domain.Filter, logger *slog.Logger, metrics *observability.Metrics) *CoverageTransformer {
	return &CoverageTransformer{
		filter:  filter,
		logger:  logger,
		metrics: metrics,
	}
}

func (t *CoverageTransformer) Transform(_ context.Context, table domain.WideTable) ([]domain.CoverageRecord, error) {
	records, err := domain.Melt(table)
	if err != nil {
		return nil, err
	}
	kept := t.filter.Apply(records)

	t.metrics.RowsExtracted.Add(float64(len(records)))
	t.metrics.RowsDropped.Add(float64(len(records) - len(kept)))
	t.logger.Info("dataset tidied", "extracted", len(records), "kept", len(kept))
	return kept, nil
}
