package artifact

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

var sampleSeries = []domain.CoverageRecord{
	{Country: "Ghana", Antigen: "DTP3", Year: 2020, CoveragePct: 80},
	{Country: "Ghana", Antigen: "DTP3", Year: 2021, CoveragePct: 85.5},
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, sampleSeries))

	want := "country,antigen,year,coverage_pct\n" +
		"Ghana,DTP3,2020,80\n" +
		"Ghana,DTP3,2021,85.5\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, nil))
	assert.Equal(t, "country,antigen,year,coverage_pct\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, WriteCSV(path, sampleSeries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ghana,DTP3,2020,80")
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	window := domain.CampaignWindow{StartYear: 2021, PreYears: 5, PostYears: 5}
	require.NoError(t, RenderChart(&buf, "Ghana", "DTP3", sampleSeries, &window))

	// PNG magic bytes.
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderChart_NotEnoughPoints(t *testing.T) {
	var buf bytes.Buffer
	err := RenderChart(&buf, "Ghana", "DTP3", sampleSeries[:1], nil)
	require.ErrorIs(t, err, ErrNotEnoughPoints)
	assert.Zero(t, buf.Len())
}

func TestWriteChartPNG_CleansUpOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")
	err := WriteChartPNG(path, "Ghana", "DTP3", nil, nil)
	require.ErrorIs(t, err, ErrNotEnoughPoints)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed render must not leave a partial file")
}
