package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/heliotrack/go-solar-reconciler/internal/config"
)

// ResilientFetcher wraps a SeriesClient with bounded linear retry and a
// minimum spacing between remote calls. Persistent failure becomes a typed
// FetchOutcome instead of a raw error, so one month's trouble never aborts
// the rest of a run.
type ResilientFetcher struct {
	client        SeriesClient
	limiter       *rate.Limiter
	retryAttempts int
	retryStep     time.Duration
	logger        *slog.Logger
}

// NewResilientFetcher builds a fetcher with the configured retry schedule
// and call pacing.
func NewResilientFetcher(client SeriesClient, cfg config.ProviderConfig, logger *slog.Logger) *ResilientFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.CallInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &ResilientFetcher{
		client:        client,
		limiter:       rate.NewLimiter(rate.Every(interval), 1),
		retryAttempts: cfg.RetryAttempts,
		retryStep:     cfg.RetryStep,
		logger:        logger.With("component", "fetcher"),
	}
}

// FetchMonth fetches one month bucket, retrying failed attempts on a linear
// schedule (step, 2*step, ...) up to the configured count. The rate limiter
// is waited on before every attempt, keeping the minimum call spacing
// independent of the backoff delays.
func (f *ResilientFetcher) FetchMonth(ctx context.Context, deviceID, monthKey string) FetchOutcome {
	var records []DayRecord
	attempts := 0

	operation := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempts++

		fetched, err := f.client.FetchMonth(ctx, deviceID, monthKey)
		if err != nil {
			f.logger.Warn("month fetch attempt failed",
				"device_id", deviceID,
				"month", monthKey,
				"attempt", attempts,
				"error", err)
			return err
		}
		records = fetched
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newLinearBackOff(f.retryStep), uint64(f.retryAttempts)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return FetchOutcome{
			Status:   OutcomeFailed,
			Attempts: attempts,
			Err:      &FetchError{DeviceID: deviceID, MonthKey: monthKey, Attempts: attempts, Err: err},
		}
	}

	if len(records) == 0 {
		f.logger.Info("provider has no data for month", "device_id", deviceID, "month", monthKey)
		return FetchOutcome{Status: OutcomeEmptyMonth, Attempts: attempts}
	}
	return FetchOutcome{Status: OutcomeSuccess, Records: records, Attempts: attempts}
}

// linearBackOff waits attempt*step between retries. The production backfill
// jobs use a linear schedule rather than an exponential one; with the default
// 1500ms step the waits are 1500ms then 3000ms.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func newLinearBackOff(step time.Duration) *linearBackOff {
	return &linearBackOff{step: step}
}

// NextBackOff implements backoff.BackOff.
func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

// Reset implements backoff.BackOff.
func (b *linearBackOff) Reset() {
	b.attempt = 0
}
