// Command loader refreshes the vaccination coverage store: it fetches the
// OWID coverage CSV, tidies and filters it, and atomically replaces the
// SQLite store file. Byproduct artifacts (cleaned CSV export, focus-series
// CSV, chart PNG) are written when ARTIFACT_DIR is set.
//
// The loader is meant to run from an external scheduler (weekly CI cron plus
// a manual trigger); it takes no arguments and exits non-zero on any failure
// so the scheduler surfaces the run as failed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/adapter/owid"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/artifact"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/config"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/observability"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("refresh failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := owid.NewClient(cfg.OWIDURL, cfg.FetchTimeout, logger)
	transformer := pipeline.NewTransformer(cfg.Filter(), logger, metrics)
	writer := sqlite.NewWriter(cfg.DBPath, logger)

	p := pipeline.New(client, transformer, writer, logger, metrics)
	snap, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.ArtifactDir != "" {
		if err := writeArtifacts(cfg, snap, logger); err != nil {
			return fmt.Errorf("write artifacts: %w", err)
		}
	}
	if cfg.FocusCountry != "" {
		logAnalysis(cfg, snap, logger)
	}
	return nil
}

func writeArtifacts(cfg *config.Config, snap domain.Snapshot, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	cleanPath := filepath.Join(cfg.ArtifactDir, "immunization_clean.csv")
	if err := artifact.WriteCSV(cleanPath, snap.Records); err != nil {
		return err
	}
	logger.Info("cleaned export written", "path", cleanPath, "rows", len(snap.Records))

	if cfg.FocusCountry == "" {
		return nil
	}

	series := domain.SelectSeries(snap.Records, cfg.FocusCountry, cfg.FocusAntigen)
	base := strings.ReplaceAll(cfg.FocusCountry+"_"+cfg.FocusAntigen, " ", "_")

	seriesPath := filepath.Join(cfg.ArtifactDir, "coverage_"+base+".csv")
	if err := artifact.WriteCSV(seriesPath, series); err != nil {
		return err
	}
	logger.Info("focus series written", "path", seriesPath, "rows", len(series))

	window := cfg.CampaignWindow()
	chartPath := filepath.Join(cfg.ArtifactDir, "plot_"+base+".png")
	if err := artifact.WriteChartPNG(chartPath, cfg.FocusCountry, cfg.FocusAntigen, series, &window); err != nil {
		if errors.Is(err, artifact.ErrNotEnoughPoints) {
			logger.Warn("skipping chart", "reason", err, "country", cfg.FocusCountry, "antigen", cfg.FocusAntigen)
			return nil
		}
		return err
	}
	logger.Info("chart written", "path", chartPath)
	return nil
}

func logAnalysis(cfg *config.Config, snap domain.Snapshot, logger *slog.Logger) {
	series := domain.SelectSeries(snap.Records, cfg.FocusCountry, cfg.FocusAntigen)
	res := domain.AnalyzeCampaign(series, cfg.CampaignWindow())

	if !res.Conclusive {
		logger.Warn("campaign analysis inconclusive",
			"country", cfg.FocusCountry,
			"antigen", cfg.FocusAntigen,
			"points_before", len(res.Before),
			"points_after", len(res.After),
		)
		return
	}
	logger.Info("campaign analysis",
		"country", cfg.FocusCountry,
		"antigen", cfg.FocusAntigen,
		"campaign_start", cfg.CampaignStart,
		"mean_before", res.MeanBefore,
		"mean_after", res.MeanAfter,
		"diff", res.Diff,
		"t_stat", res.TStat,
		"p_value", res.PValue,
		"significant", res.Significant(),
	)
}
