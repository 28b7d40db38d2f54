package viewer_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/observability"
	"github.com/couchcryptid/vaccine-coverage-etl/internal/viewer"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededServer(t *testing.T, records []domain.CoverageRecord) *viewer.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coverage.db")
	if records != nil {
		w := sqlite.NewWriter(path, discardLogger())
		require.NoError(t, w.Load(context.Background(), domain.NewSnapshot(records)))
	}

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	window := domain.CampaignWindow{StartYear: 2017, PreYears: 5, PostYears: 5}
	return viewer.NewServer(":0", store, window, observability.NewMetricsForTesting(), discardLogger())
}

func seedRecords() []domain.CoverageRecord {
	return []domain.CoverageRecord{
		{Country: "Ghana", Antigen: "DTP3", Year: 2020, CoveragePct: 80},
		{Country: "Ghana", Antigen: "DTP3", Year: 2021, CoveragePct: 85},
		{Country: "Kenya", Antigen: "DTP3", Year: 2021, CoveragePct: 90},
	}
}

func get(t *testing.T, srv *viewer.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndex_RendersSelection(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/?country=Ghana&antigen=DTP3")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Ghana / DTP3")
	assert.Contains(t, body, "<option value=\"Kenya\"")
	assert.Contains(t, body, "<td>2020</td>")
	assert.Contains(t, body, "<td>2021</td>")
	assert.Contains(t, body, "/chart.png?")
	assert.Contains(t, body, "Download CSV")
	assert.Contains(t, body, "Data refreshed")
}

func TestIndex_DefaultsToFirstCountry(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ghana / DTP3")
}

func TestIndex_AbsentPairRendersEmptyState(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/?country=Kenya&antigen=MCV1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data for Kenya / MCV1")
}

func TestIndex_EmptyStore(t *testing.T) {
	srv := seededServer(t, []domain.CoverageRecord{})

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "store is empty")
}

func TestIndex_MissingStoreDegradesGracefully(t *testing.T) {
	srv := seededServer(t, nil) // store file never created

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not available yet")
}

func TestChart_ReturnsPNG(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/chart.png?country=Ghana&antigen=DTP3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
}

func TestChart_RequiresSelection(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/chart.png")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChart_NotEnoughData(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/chart.png?country=Kenya&antigen=MCV1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport_ReturnsCSV(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/export.csv?country=Ghana&antigen=DTP3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Ghana_DTP3_coverage.csv")

	body := rec.Body.String()
	assert.Contains(t, body, "country,antigen,year,coverage_pct")
	assert.Contains(t, body, "Ghana,DTP3,2020,80")
}

func TestHealthz(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Run("ready with seeded store", func(t *testing.T) {
		srv := seededServer(t, seedRecords())
		rec := get(t, srv, "/readyz")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, float64(3), body["rows"])
	})

	t.Run("not ready without store", func(t *testing.T) {
		srv := seededServer(t, nil)
		rec := get(t, srv, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := seededServer(t, seedRecords())

	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
