package engine

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DeviceReport summarizes what one device's reconciliation pass did. Every
// device that was attempted produces exactly one, skipped devices included.
type DeviceReport struct {
	DeviceID   string `json:"device_id"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`

	DatesExpected  int `json:"dates_expected"`
	DatesMissing   int `json:"dates_missing"`
	MonthsPlanned  int `json:"months_planned"`
	MonthsFetched  int `json:"months_fetched"`
	MonthsEmpty    int `json:"months_empty"`
	MonthsFailed   int `json:"months_failed"`
	MonthsDeferred int `json:"months_deferred"`

	RowsPrepared int `json:"rows_prepared"`
	RowsWritten  int `json:"rows_written"`
	ZeroFilled   int `json:"zero_filled"`

	// DatesAdded lists the "YYYY-MM-DD" labels the pass produced rows for
	DatesAdded []string `json:"dates_added,omitempty"`

	// WriteError is set when the device's batched upsert failed; its gaps
	// stay open for the next run
	WriteError string `json:"write_error,omitempty"`
}

// RunReport is the aggregated outcome of one engine invocation. It is a pure
// value: the engine fills it in and the CLI decides how to render it.
type RunReport struct {
	RunID      string    `json:"run_id"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	DevicesProcessed int `json:"devices_processed"`
	DevicesSkipped   int `json:"devices_skipped"`
	MissingDates     int `json:"missing_dates"`
	MonthsPlanned    int `json:"months_planned"`
	MonthsFetched    int `json:"months_fetched"`
	MonthsFailed     int `json:"months_failed"`
	RowsPrepared     int `json:"rows_prepared"`
	RowsWritten      int `json:"rows_written"`
	ZeroFilled       int `json:"zero_filled"`

	Devices []DeviceReport `json:"devices"`
}

// fold accumulates one device's outcome into the run totals.
func (r *RunReport) fold(d DeviceReport) {
	r.Devices = append(r.Devices, d)
	if d.Skipped {
		r.DevicesSkipped++
		return
	}
	r.DevicesProcessed++
	r.MissingDates += d.DatesMissing
	r.MonthsPlanned += d.MonthsPlanned
	r.MonthsFetched += d.MonthsFetched + d.MonthsEmpty
	r.MonthsFailed += d.MonthsFailed
	r.RowsPrepared += d.RowsPrepared
	r.RowsWritten += d.RowsWritten
	r.ZeroFilled += d.ZeroFilled
}

// WriteText renders the report for a human operator.
func (r *RunReport) WriteText(w io.Writer) {
	mode := "backfill"
	if r.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "Reconciliation %s %s (%s)\n", mode, r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  devices:  %d processed, %d skipped\n", r.DevicesProcessed, r.DevicesSkipped)
	fmt.Fprintf(w, "  gaps:     %d missing dates across %d months (%d months fetched, %d failed)\n",
		r.MissingDates, r.MonthsPlanned, r.MonthsFetched, r.MonthsFailed)
	fmt.Fprintf(w, "  rows:     %d prepared, %d written, %d zero-filled\n", r.RowsPrepared, r.RowsWritten, r.ZeroFilled)

	for _, d := range r.Devices {
		if d.Skipped {
			fmt.Fprintf(w, "  %s: skipped (%s)\n", d.DeviceID, d.SkipReason)
			continue
		}
		if d.DatesMissing == 0 {
			fmt.Fprintf(w, "  %s: no gaps (%d dates expected)\n", d.DeviceID, d.DatesExpected)
			continue
		}
		fmt.Fprintf(w, "  %s: %d/%d dates missing, %d rows written", d.DeviceID, d.DatesMissing, d.DatesExpected, d.RowsWritten)
		if d.MonthsFailed > 0 {
			fmt.Fprintf(w, ", %d/%d months failed", d.MonthsFailed, d.MonthsPlanned)
		}
		if d.MonthsDeferred > 0 {
			fmt.Fprintf(w, ", %d months deferred", d.MonthsDeferred)
		}
		if d.WriteError != "" {
			fmt.Fprintf(w, ", write failed: %s", d.WriteError)
		}
		fmt.Fprintln(w)
		if len(d.DatesAdded) > 0 {
			fmt.Fprintf(w, "      added: %s\n", strings.Join(d.DatesAdded, ", "))
		}
	}
}
