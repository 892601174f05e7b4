// Package provider defines the contract for the inverter telemetry cloud API
// and the fetch machinery the reconciliation engine drives: a thin HTTP
// adapter for the provider's month endpoint and a resilient wrapper adding
// bounded retry and call pacing on top of any SeriesClient.
package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DayRecord is the provider's wire shape for one day inside a month
// response. It exists only during a reconciliation pass; the mapper converts
// it to a persisted DaySummary and discards it.
type DayRecord struct {
	// Date is the "YYYY-MM-DD" label of the day
	Date string `json:"dateLabel"`

	// EnergyKwh is the reported generation for the day
	EnergyKwh decimal.Decimal `json:"energy"`

	// MaxPowerKw is the reported peak power for the day
	MaxPowerKw decimal.Decimal `json:"maxPower"`
}

// SeriesClient is the opaque signed-remote-call capability: given a device
// and a "YYYY-MM" month key, return every daily record the provider has for
// that month. An empty slice with a nil error means the provider answered
// but holds no data for the month.
type SeriesClient interface {
	FetchMonth(ctx context.Context, deviceID, monthKey string) ([]DayRecord, error)
}

// OutcomeStatus classifies the result of fetching one month bucket.
type OutcomeStatus string

const (
	// OutcomeSuccess means the provider returned at least one day record
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeEmptyMonth means the provider answered successfully but has no
	// data for the month, which is distinct from a failure
	OutcomeEmptyMonth OutcomeStatus = "empty_month"
	// OutcomeFailed means every attempt failed and the bucket's dates stay
	// missing until the next run
	OutcomeFailed OutcomeStatus = "failed"
)

// FetchOutcome is the terminal result of fetching one month bucket after the
// retry policy has run its course.
type FetchOutcome struct {
	Status   OutcomeStatus
	Records  []DayRecord
	Attempts int
	Err      error
}

// Failed reports whether the bucket exhausted its attempts without an answer.
func (o FetchOutcome) Failed() bool {
	return o.Status == OutcomeFailed
}

// FetchError wraps a provider failure with the device and month it occurred
// on, after retries were exhausted.
type FetchError struct {
	DeviceID string
	MonthKey string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch month %s for device %s failed after %d attempts: %v",
		e.MonthKey, e.DeviceID, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}
