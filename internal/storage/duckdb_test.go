package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliotrack/go-solar-reconciler/internal/models"
)

func newTestDuckDB(t *testing.T) *DuckDBStore {
	t.Helper()
	store, err := NewDuckDBStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func TestDuckDBDeviceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)

	start := date(2025, time.January, 10)
	err := store.UpsertDevices(ctx, []models.DeviceSeries{
		{DeviceID: "inv-2", Name: "roof west"},
		{DeviceID: "inv-1", Name: "roof east", FirstGenerationAt: &start},
	})
	require.NoError(t, err)

	devices, err := store.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "inv-1", devices[0].DeviceID)
	require.True(t, devices[0].HasKnownStart())
	assert.Equal(t, start, devices[0].FirstGenerationAt.UTC())
	assert.Equal(t, "inv-2", devices[1].DeviceID)
	assert.False(t, devices[1].HasKnownStart())
}

func TestDuckDBDeviceUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)

	require.NoError(t, store.UpsertDevices(ctx, []models.DeviceSeries{{DeviceID: "inv-1", Name: "old"}}))
	require.NoError(t, store.UpsertDevices(ctx, []models.DeviceSeries{{DeviceID: "inv-1", Name: "new"}}))

	devices, err := store.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "new", devices[0].Name)
}

func TestDuckDBSummaryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)

	rows := []models.DaySummary{
		summary(t, "inv-1", date(2025, time.January, 10), 12.5),
		summary(t, "inv-1", date(2025, time.January, 11), 9.8),
	}

	require.NoError(t, store.UpsertDaySummaries(ctx, rows))
	require.NoError(t, store.UpsertDaySummaries(ctx, rows))

	dates, err := store.ListDates(ctx, "inv-1", date(2025, time.January, 1), date(2025, time.January, 31))
	require.NoError(t, err)
	assert.Len(t, dates, 2)
	assert.Contains(t, dates, "2025-01-10")
	assert.Contains(t, dates, "2025-01-11")
}

func TestDuckDBSummaryUpsertReplacesByNaturalKey(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)
	day := date(2025, time.January, 10)

	require.NoError(t, store.UpsertDaySummaries(ctx, []models.DaySummary{summary(t, "inv-1", day, 5)}))
	require.NoError(t, store.UpsertDaySummaries(ctx, []models.DaySummary{summary(t, "inv-1", day, 12.5)}))

	var kwh float64
	err := store.db.QueryRowContext(ctx,
		`SELECT total_generation_kwh FROM day_summaries WHERE device_id = ? AND date = ?`,
		"inv-1", day).Scan(&kwh)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, kwh, 1e-9)

	var count int
	err = store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM day_summaries WHERE device_id = ?`, "inv-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDuckDBListDatesRespectsWindowAndDevice(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)

	require.NoError(t, store.UpsertDaySummaries(ctx, []models.DaySummary{
		summary(t, "inv-1", date(2025, time.November, 14), 1),
		summary(t, "inv-1", date(2025, time.November, 18), 2),
		summary(t, "inv-1", date(2025, time.November, 23), 3),
		summary(t, "inv-2", date(2025, time.November, 18), 4),
	}))

	dates, err := store.ListDates(ctx, "inv-1", date(2025, time.November, 15), date(2025, time.November, 22))
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"2025-11-18": {}}, dates)
}

func TestDuckDBZeroValuedRowsAreAccepted(t *testing.T) {
	// Zero fills for dates the provider never reported must persist; the
	// non-negativity checks reject only negative values.
	ctx := context.Background()
	store := newTestDuckDB(t)

	row := models.ZeroDaySummary("inv-1", date(2025, time.January, 10))
	require.NoError(t, store.UpsertDaySummaries(ctx, []models.DaySummary{*row}))

	dates, err := store.ListDates(ctx, "inv-1", date(2025, time.January, 1), date(2025, time.January, 31))
	require.NoError(t, err)
	assert.Contains(t, dates, "2025-01-10")
}

func TestDuckDBRejectsInvalidRowBeforeWriting(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)

	bad := models.DaySummary{DeviceID: "", Date: date(2025, time.January, 1), CreatedAt: time.Now()}
	err := store.UpsertDaySummaries(ctx, []models.DaySummary{
		summary(t, "inv-1", date(2025, time.January, 10), 5),
		bad,
	})
	require.Error(t, err)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "day_summaries", storageErr.Table)

	// Validation happens before the transaction, so nothing was written.
	dates, err := store.ListDates(ctx, "inv-1", date(2025, time.January, 1), date(2025, time.January, 31))
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestDuckDBHealthCheckAndClose(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)

	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.Close())
	assert.Error(t, store.HealthCheck(ctx))
	assert.NoError(t, store.Close()) // second close is a no-op
}

func TestDuckDBUpsertEmptyBatchIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)
	assert.NoError(t, store.UpsertDaySummaries(ctx, nil))
	assert.NoError(t, store.UpsertDevices(ctx, nil))
}

func TestDecimalToFloat(t *testing.T) {
	assert.InDelta(t, 12.5, decimalToFloat(decimal.NewFromFloat(12.5)), 1e-9)
	assert.Zero(t, decimalToFloat(decimal.Decimal{}))
}
