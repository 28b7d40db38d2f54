package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

// ErrNotEnoughPoints is returned when a series has fewer than two points;
// the chart renderer needs at least two X values.
var ErrNotEnoughPoints = errors.New("not enough points to chart")

// RenderChart draws a coverage-over-time line chart as PNG. A non-nil window
// adds a dashed vertical marker at the campaign start year.
func RenderChart(w io.Writer, country, antigen string, series []domain.CoverageRecord, window *domain.CampaignWindow) error {
	if len(series) < 2 {
		return ErrNotEnoughPoints
	}

	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, rec := range series {
		xs[i] = float64(rec.Year)
		ys[i] = rec.CoveragePct
	}

	chartSeries := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Coverage (%)",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeWidth: 2, DotWidth: 3},
		},
	}
	if window != nil {
		start := float64(window.StartYear)
		chartSeries = append(chartSeries, chart.ContinuousSeries{
			Name:    fmt.Sprintf("Campaign %d", window.StartYear),
			XValues: []float64{start, start},
			YValues: []float64{0, 100},
			Style: chart.Style{
				StrokeWidth:     1,
				StrokeColor:     chart.ColorRed,
				StrokeDashArray: []float64{4, 4},
			},
		})
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s / %s coverage over time", country, antigen),
		Width:      900,
		Height:     450,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Year",
			ValueFormatter: yearFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Coverage (%)",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: chartSeries,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// WriteChartPNG renders the chart to a file, creating or truncating it.
func WriteChartPNG(path, country, antigen string, series []domain.CoverageRecord, window *domain.CampaignWindow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := RenderChart(f, country, antigen, series, window); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart file: %w", err)
	}
	return nil
}

func yearFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(f))
	}
	return ""
}
