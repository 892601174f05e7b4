package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDaySummary(t *testing.T) {
	// Date with a time component gets normalized to UTC midnight.
	at := time.Date(2025, time.January, 10, 14, 30, 0, 0, time.UTC)

	s, err := NewDaySummary("inv-1", at, decimal.NewFromFloat(12.4), decimal.NewFromFloat(3.2))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), s.Date)
	assert.Equal(t, "2025-01-10", s.DateLabel())
	assert.False(t, s.IsZeroFill())
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewDaySummaryValidation(t *testing.T) {
	at := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, err := NewDaySummary("", at, decimal.Zero, decimal.Zero)
	assert.ErrorContains(t, err, "device ID")

	_, err = NewDaySummary("inv-1", at, decimal.NewFromInt(-1), decimal.Zero)
	assert.ErrorContains(t, err, "negative")

	_, err = NewDaySummary("inv-1", time.Time{}, decimal.Zero, decimal.Zero)
	assert.ErrorContains(t, err, "date")
}

func TestZeroDaySummary(t *testing.T) {
	at := time.Date(2025, time.November, 18, 0, 0, 0, 0, time.UTC)

	s := ZeroDaySummary("inv-2", at)
	require.NoError(t, s.Validate())
	assert.True(t, s.IsZeroFill())
	assert.True(t, s.TotalGenerationKwh.IsZero())
	assert.True(t, s.PeakPowerKw.IsZero())
}

func TestDeviceSeriesHasKnownStart(t *testing.T) {
	start := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)

	known := DeviceSeries{DeviceID: "inv-1", FirstGenerationAt: &start}
	assert.True(t, known.HasKnownStart())
	require.NoError(t, known.Validate())

	unknown := DeviceSeries{DeviceID: "inv-2"}
	assert.False(t, unknown.HasKnownStart())
	require.NoError(t, unknown.Validate())

	var zero time.Time
	bad := DeviceSeries{DeviceID: "inv-3", FirstGenerationAt: &zero}
	assert.Error(t, bad.Validate())
}
