// Package models defines the core domain types for solar daily-generation
// reconciliation: the device series being tracked and the persisted daily
// summary rows the engine exists to keep complete.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/heliotrack/go-solar-reconciler/internal/timerange"
)

// DaySummary is the persisted unit of the generation series: one device's
// totals for one UTC calendar day. The pair (DeviceID, Date) is the natural
// key and globally unique; every write goes through an idempotent upsert on
// that key so repeated runs can never duplicate a day.
type DaySummary struct {
	// DeviceID is the inverter the summary belongs to
	DeviceID string `json:"device_id" db:"device_id"`

	// Date is the UTC midnight of the summarized calendar day
	Date time.Time `json:"date" db:"date"`

	// TotalGenerationKwh is the energy generated over the day
	TotalGenerationKwh decimal.Decimal `json:"total_generation_kwh" db:"total_generation_kwh"`

	// PeakPowerKw is the maximum instantaneous power seen during the day
	PeakPowerKw decimal.Decimal `json:"peak_power_kw" db:"peak_power_kw"`

	// CreatedAt is when the row was written or last overwritten
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewDaySummary creates a summary row for a device and day, normalizing the
// date to UTC midnight.
func NewDaySummary(deviceID string, date time.Time, totalKwh, peakKw decimal.Decimal) (*DaySummary, error) {
	s := &DaySummary{
		DeviceID:           deviceID,
		Date:               timerange.DayStart(date),
		TotalGenerationKwh: totalKwh,
		PeakPowerKw:        peakKw,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid day summary: %w", err)
	}
	return s, nil
}

// ZeroDaySummary creates an explicit zero-valued row for a day the provider
// reported no data for. Writing the zero marks the day as reconciled so it
// stops reappearing as a gap on every subsequent run.
func ZeroDaySummary(deviceID string, date time.Time) *DaySummary {
	return &DaySummary{
		DeviceID:           deviceID,
		Date:               timerange.DayStart(date),
		TotalGenerationKwh: decimal.Zero,
		PeakPowerKw:        decimal.Zero,
		CreatedAt:          time.Now().UTC(),
	}
}

// Validate checks field presence and value sanity.
func (s *DaySummary) Validate() error {
	if s.DeviceID == "" {
		return errors.New("summary device ID cannot be empty")
	}
	if s.Date.IsZero() {
		return errors.New("summary date cannot be zero")
	}
	if !s.Date.Equal(timerange.DayStart(s.Date)) {
		return errors.New("summary date must be a UTC midnight")
	}
	if s.TotalGenerationKwh.IsNegative() {
		return errors.New("total generation cannot be negative")
	}
	if s.PeakPowerKw.IsNegative() {
		return errors.New("peak power cannot be negative")
	}
	return nil
}

// IsZeroFill reports whether the row carries no generation data, i.e. it was
// written only to mark the day as checked.
func (s *DaySummary) IsZeroFill() bool {
	return s.TotalGenerationKwh.IsZero() && s.PeakPowerKw.IsZero()
}

// DateLabel renders the summarized day as its "YYYY-MM-DD" key.
func (s *DaySummary) DateLabel() string {
	return timerange.FormatDate(s.Date)
}

// String implements fmt.Stringer.
func (s *DaySummary) String() string {
	return fmt.Sprintf("DaySummary{Device: %s, Date: %s, Total: %s kWh, Peak: %s kW}",
		s.DeviceID, s.DateLabel(), s.TotalGenerationKwh.String(), s.PeakPowerKw.String())
}
