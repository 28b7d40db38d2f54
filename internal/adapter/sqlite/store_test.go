package sqlite

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vaccine-coverage-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedRecords() []domain.CoverageRecord {
	return []domain.CoverageRecord{
		{Country: "Ghana", Antigen: "DTP3", Year: 2020, CoveragePct: 80},
		{Country: "Ghana", Antigen: "DTP3", Year: 2021, CoveragePct: 85},
		{Country: "Kenya", Antigen: "DTP3", Year: 2021, CoveragePct: 90},
	}
}

func writeStore(t *testing.T, path string, records []domain.CoverageRecord) {
	t.Helper()
	w := NewWriter(path, discardLogger())
	require.NoError(t, w.Load(context.Background(), domain.NewSnapshot(records)))
}

func TestStore_EndToEndScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.db")
	writeStore(t, path, seedRecords())

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	countries, err := store.Countries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ghana", "Kenya"}, countries)

	antigens, err := store.Antigens(ctx, "Ghana")
	require.NoError(t, err)
	assert.Equal(t, []string{"DTP3"}, antigens)

	series, err := store.Series(ctx, "Ghana", "DTP3")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, domain.CoverageRecord{Country: "Ghana", Antigen: "DTP3", Year: 2020, CoveragePct: 80}, series[0])
	assert.Equal(t, domain.CoverageRecord{Country: "Ghana", Antigen: "DTP3", Year: 2021, CoveragePct: 85}, series[1])

	empty, err := store.Series(ctx, "Kenya", "MCV1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	last, err := store.LastRefreshed(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestWriter_ReplacesWholeStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.db")
	writeStore(t, path, seedRecords())
	writeStore(t, path, []domain.CoverageRecord{
		{Country: "Kenya", Antigen: "MCV1", Year: 2022, CoveragePct: 75},
	})

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Rows from the first run are gone, not merged.
	series, err := store.Series(ctx, "Ghana", "DTP3")
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestWriter_DeterministicGivenFixedInput(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.db")
	pathB := filepath.Join(dir, "b.db")
	writeStore(t, pathA, seedRecords())
	writeStore(t, pathB, seedRecords())

	bytesA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	bytesB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, bytesA, bytesB)
}

func TestWriter_FailedRunLeavesStoreIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.db")
	writeStore(t, path, seedRecords())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWriter(path, discardLogger())
	err = w.Load(cancelled, domain.NewSnapshot([]domain.CoverageRecord{
		{Country: "India", Antigen: "BCG", Year: 2000, CoveragePct: 50},
	}))
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed run must not touch the existing store")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp store must be cleaned up")
}

func TestWriter_TempFileRemovedAfterSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.db")
	writeStore(t, path, seedRecords())

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_MissingFile(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "does-not-exist.db"))
	require.NoError(t, err, "open is lazy; a missing file is not an error yet")
	defer store.Close()

	_, err = store.Countries(context.Background())
	assert.Error(t, err)
}
