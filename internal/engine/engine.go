// Package engine orchestrates gap-filling reconciliation per device: compute
// the missing dates, plan month batches, fetch each month through the
// resilient fetcher, map records onto summary rows, and write them in one
// idempotent batched upsert. Failures are isolated at the narrowest scope
// that makes sense: a failed month leaves its dates for the next run, a
// failed device never stops the others, and only the inability to list
// devices aborts a run.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heliotrack/go-solar-reconciler/internal/gaps"
	"github.com/heliotrack/go-solar-reconciler/internal/models"
	"github.com/heliotrack/go-solar-reconciler/internal/provider"
	"github.com/heliotrack/go-solar-reconciler/internal/storage"
	"github.com/heliotrack/go-solar-reconciler/internal/timerange"
)

// Fetcher fetches one month bucket with retries already applied. Satisfied
// by provider.ResilientFetcher.
type Fetcher interface {
	FetchMonth(ctx context.Context, deviceID, monthKey string) provider.FetchOutcome
}

// Options tune one reconciliation run.
type Options struct {
	// DryRun executes every state through mapping but replaces the upsert
	// with a no-op that only contributes to the report
	DryRun bool

	// DeviceID restricts the run to a single device when non-empty
	DeviceID string

	// MaxMonthsPerRun caps how many month buckets are fetched per device;
	// oldest months go first and the remainder is reported as deferred.
	// 0 means no cap.
	MaxMonthsPerRun int
}

// Engine drives reconciliation across all devices sequentially. The provider
// rate limit makes concurrent fetching counterproductive, so there is no
// fan-out; the only shared resource is the store, written from this single
// control flow through the idempotent upsert.
type Engine struct {
	devices storage.DeviceLister
	index   storage.SummaryIndex
	writer  storage.SummaryWriter
	fetcher Fetcher
	window  WindowPolicy
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// New assembles an engine from its collaborators.
func New(devices storage.DeviceLister, index storage.SummaryIndex, writer storage.SummaryWriter,
	fetcher Fetcher, window WindowPolicy, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		devices: devices,
		index:   index,
		writer:  writer,
		fetcher: fetcher,
		window:  window,
		opts:    opts,
		logger:  logger.With("component", "engine"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one reconciliation pass and returns its report. The returned
// error is non-nil only for fatal conditions: the device listing failed or
// the context was cancelled. Per-device and per-month failures live in the
// report instead.
func (e *Engine) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		DryRun:    e.opts.DryRun,
		StartedAt: e.now(),
	}

	devices, err := e.devices.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("reconciliation run started",
		"run_id", report.RunID,
		"devices", len(devices),
		"dry_run", e.opts.DryRun)

	for _, dev := range devices {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = e.now()
			return report, err
		}
		if e.opts.DeviceID != "" && dev.DeviceID != e.opts.DeviceID {
			continue
		}
		report.fold(e.reconcileDevice(ctx, dev))
	}

	report.FinishedAt = e.now()
	e.logger.Info("reconciliation run finished",
		"run_id", report.RunID,
		"devices_processed", report.DevicesProcessed,
		"devices_skipped", report.DevicesSkipped,
		"missing_dates", report.MissingDates,
		"rows_written", report.RowsWritten,
		"months_failed", report.MonthsFailed)
	return report, nil
}

// reconcileDevice runs the per-device state machine: compute gaps, plan
// month buckets, fetch and map each bucket, then upsert the whole batch.
func (e *Engine) reconcileDevice(ctx context.Context, dev models.DeviceSeries) DeviceReport {
	d := DeviceReport{DeviceID: dev.DeviceID}
	log := e.logger.With("device_id", dev.DeviceID)

	start, end, ok, reason := e.window.Window(dev, e.now())
	if !ok {
		log.Warn("skipping device", "reason", reason)
		d.Skipped = true
		d.SkipReason = reason
		return d
	}

	expected := timerange.EnumerateDatesInclusive(start, end)
	d.DatesExpected = len(expected)
	if len(expected) == 0 {
		return d
	}

	existing, err := e.index.ListDates(ctx, dev.DeviceID, start, end)
	if err != nil {
		log.Warn("failed to list existing dates, skipping device", "error", err)
		d.Skipped = true
		d.SkipReason = "existing-dates query failed: " + err.Error()
		return d
	}

	missing := gaps.Missing(expected, existing)
	d.DatesMissing = len(missing)
	if len(missing) == 0 {
		log.Debug("no gaps found", "dates_expected", d.DatesExpected)
		return d
	}

	buckets := gaps.PlanMonthBuckets(missing)
	d.MonthsPlanned = len(buckets)
	if limit := e.opts.MaxMonthsPerRun; limit > 0 && len(buckets) > limit {
		d.MonthsDeferred = len(buckets) - limit
		buckets = buckets[:limit]
		log.Info("month cap reached, deferring remainder",
			"cap", limit, "deferred", d.MonthsDeferred)
	}

	log.Info("gaps found",
		"dates_missing", d.DatesMissing,
		"months", len(buckets))

	var rows []models.DaySummary
	for _, bucket := range buckets {
		if ctx.Err() != nil {
			break
		}

		outcome := e.fetcher.FetchMonth(ctx, dev.DeviceID, bucket.Key)
		switch outcome.Status {
		case provider.OutcomeFailed:
			d.MonthsFailed++
			log.Warn("month fetch failed, its dates stay missing",
				"month", bucket.Key,
				"attempts", outcome.Attempts,
				"error", outcome.Err)
			continue
		case provider.OutcomeEmptyMonth:
			d.MonthsEmpty++
		default:
			d.MonthsFetched++
		}

		rows = append(rows, e.mapBucket(log, dev.DeviceID, bucket, outcome.Records, &d)...)
	}

	d.RowsPrepared = len(rows)
	if len(rows) == 0 {
		return d
	}

	if e.opts.DryRun {
		d.DatesAdded = dateLabels(rows)
		return d
	}

	if err := e.writer.UpsertDaySummaries(ctx, rows); err != nil {
		log.Error("batched upsert failed, gaps stay open for the next run", "error", err)
		d.WriteError = err.Error()
		return d
	}
	d.RowsWritten = len(rows)
	d.DatesAdded = dateLabels(rows)
	return d
}

// mapBucket applies the record mapper to one fetched month: each missing
// date gets either the provider's record or an explicit zero-valued row.
// The zero fill marks the date as reconciled so it stops reappearing as a
// gap on every run; it is a caveat, not an error.
func (e *Engine) mapBucket(log *slog.Logger, deviceID string, bucket gaps.MonthBucket,
	records []provider.DayRecord, d *DeviceReport) []models.DaySummary {

	byDate := make(map[string]provider.DayRecord, len(records))
	for _, rec := range records {
		byDate[rec.Date] = rec
	}

	rows := make([]models.DaySummary, 0, len(bucket.Dates))
	for _, day := range bucket.Dates {
		label := timerange.FormatDate(day)
		rec, found := byDate[label]
		if !found {
			log.Warn("provider has no record for date, writing zero-valued row",
				"month", bucket.Key, "date", label)
			d.ZeroFilled++
			rows = append(rows, *models.ZeroDaySummary(deviceID, day))
			continue
		}

		row, err := models.NewDaySummary(deviceID, day, rec.EnergyKwh, rec.MaxPowerKw)
		if err != nil {
			log.Warn("provider record is invalid, writing zero-valued row",
				"month", bucket.Key, "date", label, "error", err)
			d.ZeroFilled++
			rows = append(rows, *models.ZeroDaySummary(deviceID, day))
			continue
		}
		rows = append(rows, *row)
	}
	return rows
}

func dateLabels(rows []models.DaySummary) []string {
	labels := make([]string, len(rows))
	for i := range rows {
		labels[i] = rows[i].DateLabel()
	}
	return labels
}
