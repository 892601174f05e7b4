package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/heliotrack/go-solar-reconciler/internal/models"
	"github.com/heliotrack/go-solar-reconciler/internal/timerange"
)

// MemoryStore implements Store entirely in memory. It backs tests and
// exploratory runs where no database file should be touched, with the same
// upsert-by-natural-key semantics as the DuckDB backend.
type MemoryStore struct {
	mu        sync.RWMutex
	devices   map[string]models.DeviceSeries
	summaries map[string]map[string]models.DaySummary // device_id -> date label -> row
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices:   make(map[string]models.DeviceSeries),
		summaries: make(map[string]map[string]models.DaySummary),
	}
}

// Initialize implements Manager.
func (m *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// ListDevices implements DeviceLister.
func (m *MemoryStore) ListDevices(ctx context.Context) ([]models.DeviceSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, NewStorageError("query", "devices", fmt.Errorf("store is closed"))
	}

	devices := make([]models.DeviceSeries, 0, len(m.devices))
	for _, dev := range m.devices {
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceID < devices[j].DeviceID })
	return devices, nil
}

// UpsertDevices implements DeviceWriter.
func (m *MemoryStore) UpsertDevices(ctx context.Context, devices []models.DeviceSeries) error {
	for i := range devices {
		if err := devices[i].Validate(); err != nil {
			return NewStorageError("upsert", "devices", fmt.Errorf("invalid device at index %d: %w", i, err))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewStorageError("upsert", "devices", fmt.Errorf("store is closed"))
	}
	for _, dev := range devices {
		m.devices[dev.DeviceID] = dev
	}
	return nil
}

// ListDates implements SummaryIndex.
func (m *MemoryStore) ListDates(ctx context.Context, deviceID string, from, to time.Time) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, NewStorageError("query", "day_summaries", fmt.Errorf("store is closed"))
	}

	first := timerange.DayStart(from)
	last := timerange.DayStart(to)

	dates := make(map[string]struct{})
	for label, row := range m.summaries[deviceID] {
		if row.Date.Before(first) || row.Date.After(last) {
			continue
		}
		dates[label] = struct{}{}
	}
	return dates, nil
}

// UpsertDaySummaries implements SummaryWriter.
func (m *MemoryStore) UpsertDaySummaries(ctx context.Context, rows []models.DaySummary) error {
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return NewStorageError("upsert", "day_summaries", fmt.Errorf("invalid summary at index %d: %w", i, err))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewStorageError("upsert", "day_summaries", fmt.Errorf("store is closed"))
	}
	for _, row := range rows {
		byDate, ok := m.summaries[row.DeviceID]
		if !ok {
			byDate = make(map[string]models.DaySummary)
			m.summaries[row.DeviceID] = byDate
		}
		byDate[row.DateLabel()] = row
	}
	return nil
}

// SummaryCount returns the number of persisted rows for a device; test helper.
func (m *MemoryStore) SummaryCount(deviceID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.summaries[deviceID])
}

// Summary returns the persisted row for a device and date label, if any;
// test helper.
func (m *MemoryStore) Summary(deviceID, dateLabel string) (models.DaySummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.summaries[deviceID][dateLabel]
	return row, ok
}

// HealthCheck implements Manager.
func (m *MemoryStore) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return NewStorageError("health_check", "", fmt.Errorf("store is closed"))
	}
	return nil
}

// Close implements Manager.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
