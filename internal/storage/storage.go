// Package storage defines the persistence layer for device series and daily
// generation summaries. The interfaces here are what the reconciliation
// engine is programmed against; DuckDB and in-memory implementations satisfy
// them for production and tests respectively.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/heliotrack/go-solar-reconciler/internal/models"
)

// DeviceLister returns the devices whose series are reconciled. Failure here
// is fatal to a run; without the device list nothing can proceed.
type DeviceLister interface {
	// ListDevices returns every known device, ordered by device ID.
	ListDevices(ctx context.Context) ([]models.DeviceSeries, error)
}

// SummaryIndex answers which dates already have a persisted summary row.
type SummaryIndex interface {
	// ListDates returns the set of dates in [from, to] (inclusive, UTC
	// calendar days) that already have a row for the device, keyed by
	// "YYYY-MM-DD" labels.
	ListDates(ctx context.Context, deviceID string, from, to time.Time) (map[string]struct{}, error)
}

// SummaryWriter persists summary rows idempotently.
type SummaryWriter interface {
	// UpsertDaySummaries inserts-or-replaces rows keyed by (device_id, date)
	// in one batch. Repeated application with the same rows is safe.
	UpsertDaySummaries(ctx context.Context, rows []models.DaySummary) error
}

// DeviceWriter persists device series records, used when importing or
// refreshing the inverter list.
type DeviceWriter interface {
	// UpsertDevices inserts-or-replaces devices keyed by device_id.
	UpsertDevices(ctx context.Context, devices []models.DeviceSeries) error
}

// Manager handles storage lifecycle concerns.
type Manager interface {
	// Initialize prepares the schema; idempotent and safe to call repeatedly.
	Initialize(ctx context.Context) error

	// Close releases the backend. The store must not be used afterwards.
	Close() error

	// HealthCheck verifies the backend is reachable with a lightweight query.
	HealthCheck(ctx context.Context) error
}

// Store combines every persistence capability the application uses.
type Store interface {
	DeviceLister
	DeviceWriter
	SummaryIndex
	SummaryWriter
	Manager
}

// StorageError wraps a failed storage operation with its context.
type StorageError struct {
	// Operation is the storage operation that failed (e.g. "upsert", "query")
	Operation string

	// Table is the table involved, if any
	Table string

	// Err is the underlying cause
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage operation %s on table %s failed: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("storage operation %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a StorageError with the provided details.
func NewStorageError(operation, table string, err error) *StorageError {
	return &StorageError{Operation: operation, Table: table, Err: err}
}
