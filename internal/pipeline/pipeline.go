// Package pipeline orchestrates one extract-transform-load refresh of the
// coverage store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/observability"
)

// Extractor fetches the raw wide dataset from the remote source.
type Extractor interface {
	Extract(ctx context.Context) (domain.WideTable, error)
}

// Transformer tidies and filters the wide dataset into coverage records.
type Transformer interface {
	Transform(ctx context.Context, table domain.WideTable) ([]domain.CoverageRecord, error)
}

// Loader persists a snapshot, replacing whatever was stored before.
type Loader interface {
	Load(ctx context.Context, snap domain.Snapshot) error
}

// Pipeline runs the extract-transform-load sequence once per invocation.
// There is no retry policy: a failed step aborts the run and the previous
// store survives untouched, which is what a cron-driven refresh wants.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run executes one refresh and returns the snapshot that now backs the store.
func (p *Pipeline) Run(ctx context.Context) (domain.Snapshot, error) {
	start := time.Now()
	p.logger.Info("refresh started")

	fetchStart := time.Now()
	table, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("extract: %w", err)
	}
	p.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())

	records, err := p.transformer.Transform(ctx, table)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("transform: %w", err)
	}
	if len(records) == 0 {
		// Legal but suspicious: the store will be replaced with an empty table.
		p.logger.Warn("transform produced no records")
	}

	snap := domain.NewSnapshot(records)
	if err := p.loader.Load(ctx, snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load: %w", err)
	}

	p.metrics.RowsLoaded.Add(float64(len(records)))
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastRefresh.Set(float64(snap.RefreshedAt.Unix()))
	p.logger.Info("refresh complete", "rows", len(records), "duration", time.Since(start))
	return snap, nil
}
