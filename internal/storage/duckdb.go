package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/shopspring/decimal"

	"github.com/heliotrack/go-solar-reconciler/internal/models"
	"github.com/heliotrack/go-solar-reconciler/internal/timerange"
)

// DuckDBStore implements Store on a DuckDB database. Summaries carry a
// composite primary key (device_id, date) and every write goes through
// INSERT OR REPLACE, so the natural key doubles as the upsert conflict
// target and repeated runs converge instead of duplicating rows.
type DuckDBStore struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewDuckDBStore opens a DuckDB database at dbPath, ":memory:" included.
func NewDuckDBStore(dbPath string, logger *slog.Logger) (*DuckDBStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, NewStorageError("open", "", fmt.Errorf("failed to open DuckDB database: %w", err))
	}

	// Single writer pattern as recommended for DuckDB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &DuckDBStore{
		db:     db,
		dbPath: dbPath,
		logger: logger.With("component", "duckdb_store"),
	}, nil
}

// Initialize implements Manager.
func (d *DuckDBStore) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("initializing DuckDB store", "db_path", d.dbPath)

	statements := []struct {
		table string
		query string
	}{
		{"devices", `
			CREATE TABLE IF NOT EXISTS devices (
				device_id VARCHAR PRIMARY KEY,
				name VARCHAR NOT NULL DEFAULT '',
				first_generation_at TIMESTAMPTZ
			)`},
		{"day_summaries", `
			CREATE TABLE IF NOT EXISTS day_summaries (
				device_id VARCHAR NOT NULL,
				date DATE NOT NULL,
				total_generation_kwh DOUBLE NOT NULL,
				peak_power_kw DOUBLE NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				CONSTRAINT day_summaries_pk PRIMARY KEY (device_id, date),
				CONSTRAINT day_summaries_energy_non_negative CHECK (total_generation_kwh >= 0),
				CONSTRAINT day_summaries_power_non_negative CHECK (peak_power_kw >= 0)
			)`},
		{"day_summaries", `
			CREATE INDEX IF NOT EXISTS idx_day_summaries_date ON day_summaries (date)`},
	}

	for _, stmt := range statements {
		if _, err := d.db.ExecContext(ctx, stmt.query); err != nil {
			return NewStorageError("initialize", stmt.table, err)
		}
	}

	return nil
}

// ListDevices implements DeviceLister.
func (d *DuckDBStore) ListDevices(ctx context.Context) ([]models.DeviceSeries, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT device_id, name, first_generation_at FROM devices ORDER BY device_id`)
	if err != nil {
		return nil, NewStorageError("query", "devices", err)
	}
	defer rows.Close()

	var devices []models.DeviceSeries
	for rows.Next() {
		var dev models.DeviceSeries
		var firstGen sql.NullTime
		if err := rows.Scan(&dev.DeviceID, &dev.Name, &firstGen); err != nil {
			return nil, NewStorageError("scan", "devices", err)
		}
		if firstGen.Valid {
			t := firstGen.Time.UTC()
			dev.FirstGenerationAt = &t
		}
		devices = append(devices, dev)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("query", "devices", err)
	}
	return devices, nil
}

// UpsertDevices implements DeviceWriter.
func (d *DuckDBStore) UpsertDevices(ctx context.Context, devices []models.DeviceSeries) error {
	if len(devices) == 0 {
		return nil
	}

	for i := range devices {
		if err := devices[i].Validate(); err != nil {
			return NewStorageError("upsert", "devices", fmt.Errorf("invalid device at index %d: %w", i, err))
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("upsert", "devices", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO devices (device_id, name, first_generation_at) VALUES (?, ?, ?)`)
	if err != nil {
		return NewStorageError("upsert", "devices", err)
	}
	defer stmt.Close()

	for _, dev := range devices {
		var firstGen interface{}
		if dev.HasKnownStart() {
			firstGen = dev.FirstGenerationAt.UTC()
		}
		if _, err := stmt.ExecContext(ctx, dev.DeviceID, dev.Name, firstGen); err != nil {
			return NewStorageError("upsert", "devices", fmt.Errorf("device %s: %w", dev.DeviceID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("upsert", "devices", err)
	}
	return nil
}

// ListDates implements SummaryIndex.
func (d *DuckDBStore) ListDates(ctx context.Context, deviceID string, from, to time.Time) (map[string]struct{}, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT date FROM day_summaries WHERE device_id = ? AND date >= ? AND date <= ?`,
		deviceID, timerange.DayStart(from), timerange.DayStart(to))
	if err != nil {
		return nil, NewStorageError("query", "day_summaries", err)
	}
	defer rows.Close()

	dates := make(map[string]struct{})
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, NewStorageError("scan", "day_summaries", err)
		}
		dates[timerange.FormatDate(day)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("query", "day_summaries", err)
	}
	return dates, nil
}

// UpsertDaySummaries implements SummaryWriter. The whole batch commits in one
// transaction; a mid-batch failure rolls everything back and the next run
// simply sees the same gaps again.
func (d *DuckDBStore) UpsertDaySummaries(ctx context.Context, rows []models.DaySummary) error {
	if len(rows) == 0 {
		return nil
	}

	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return NewStorageError("upsert", "day_summaries", fmt.Errorf("invalid summary at index %d: %w", i, err))
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("upsert", "day_summaries", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO day_summaries
			(device_id, date, total_generation_kwh, peak_power_kw, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return NewStorageError("upsert", "day_summaries", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.DeviceID,
			row.Date,
			decimalToFloat(row.TotalGenerationKwh),
			decimalToFloat(row.PeakPowerKw),
			row.CreatedAt.UTC(),
		); err != nil {
			return NewStorageError("upsert", "day_summaries",
				fmt.Errorf("row (%s, %s): %w", row.DeviceID, row.DateLabel(), err))
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("upsert", "day_summaries", err)
	}

	d.logger.Debug("upserted day summaries", "count", len(rows))
	return nil
}

// HealthCheck implements Manager.
func (d *DuckDBStore) HealthCheck(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return NewStorageError("health_check", "", fmt.Errorf("database connection is closed"))
	}
	var one int
	if err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return NewStorageError("health_check", "", err)
	}
	return nil
}

// Close implements Manager.
func (d *DuckDBStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func decimalToFloat(v decimal.Decimal) float64 {
	f, _ := v.Float64()
	return f
}
