// Package gaps computes the set of missing daily-summary dates for a device
// and plans the remote fetches needed to fill them. Both operations are pure:
// the calculator is a set difference over calendar days and the planner is a
// grouping by month, so every run recomputes gaps from scratch and repeated
// runs converge without any persisted gap state.
package gaps

import (
	"time"

	"github.com/heliotrack/go-solar-reconciler/internal/timerange"
)

// MonthBucket is one month's worth of missing dates for a single device, the
// unit of remote fetch and retry. Constructed per run and discarded after.
type MonthBucket struct {
	// Key is the "YYYY-MM" grouping token for the bucket
	Key string

	// Dates are the missing UTC midnights falling inside the month, in
	// chronological order
	Dates []time.Time
}

// Missing returns expected \ existing with the chronological order of
// expected preserved. The existing set is keyed by "YYYY-MM-DD" labels, the
// shape the persistent index returns dates in.
func Missing(expected []time.Time, existing map[string]struct{}) []time.Time {
	if len(expected) == 0 {
		return nil
	}

	missing := make([]time.Time, 0, len(expected))
	for _, d := range expected {
		if _, ok := existing[timerange.FormatDate(d)]; ok {
			continue
		}
		missing = append(missing, d)
	}
	if len(missing) == 0 {
		return nil
	}
	return missing
}

// PlanMonthBuckets groups missing dates into month buckets so the engine
// issues at most one remote call per month. Every date lands in exactly one
// bucket, months with no missing dates produce no bucket, and buckets come
// back in ascending month order because the input dates are chronological.
func PlanMonthBuckets(missing []time.Time) []MonthBucket {
	if len(missing) == 0 {
		return nil
	}

	groups, keys := timerange.GroupByMonth(missing)
	buckets := make([]MonthBucket, 0, len(keys))
	for _, key := range keys {
		buckets = append(buckets, MonthBucket{Key: key, Dates: groups[key]})
	}
	return buckets
}
