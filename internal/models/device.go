package models

import (
	"errors"
	"fmt"
	"time"
)

// DeviceSeries identifies one inverter whose daily generation series is
// reconciled against the provider. FirstGenerationAt lower-bounds the
// reconciliation window; it is supplied by the inverter listing and immutable
// once known. A nil FirstGenerationAt means the provider has never reported a
// start of generation for the device, so no window can be derived and the
// device is skipped.
type DeviceSeries struct {
	// DeviceID is the provider-assigned inverter identifier
	DeviceID string `json:"device_id" db:"device_id"`

	// Name is the operator-facing label for the device
	Name string `json:"name" db:"name"`

	// FirstGenerationAt is the timestamp of the first recorded generation,
	// nil when unknown
	FirstGenerationAt *time.Time `json:"first_generation_at,omitempty" db:"first_generation_at"`
}

// Validate checks that the device carries the fields required to take part
// in a reconciliation run.
func (d *DeviceSeries) Validate() error {
	if d.DeviceID == "" {
		return errors.New("device ID cannot be empty")
	}
	if d.FirstGenerationAt != nil && d.FirstGenerationAt.IsZero() {
		return errors.New("first generation timestamp cannot be the zero time")
	}
	return nil
}

// HasKnownStart reports whether the reconciliation window for this device
// can be bounded.
func (d *DeviceSeries) HasKnownStart() bool {
	return d.FirstGenerationAt != nil && !d.FirstGenerationAt.IsZero()
}

// String implements fmt.Stringer.
func (d *DeviceSeries) String() string {
	start := "unknown"
	if d.HasKnownStart() {
		start = d.FirstGenerationAt.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("DeviceSeries{ID: %s, Name: %s, FirstGeneration: %s}", d.DeviceID, d.Name, start)
}
