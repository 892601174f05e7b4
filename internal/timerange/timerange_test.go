package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEnumerateDatesInclusive(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []time.Time
	}{
		{
			name:  "single day when start equals end",
			start: date(2025, time.January, 10),
			end:   date(2025, time.January, 10),
			want:  []time.Time{date(2025, time.January, 10)},
		},
		{
			name:  "five day window",
			start: date(2025, time.January, 10),
			end:   date(2025, time.January, 14),
			want: []time.Time{
				date(2025, time.January, 10),
				date(2025, time.January, 11),
				date(2025, time.January, 12),
				date(2025, time.January, 13),
				date(2025, time.January, 14),
			},
		},
		{
			name:  "crosses month boundary",
			start: date(2025, time.January, 30),
			end:   date(2025, time.February, 2),
			want: []time.Time{
				date(2025, time.January, 30),
				date(2025, time.January, 31),
				date(2025, time.February, 1),
				date(2025, time.February, 2),
			},
		},
		{
			name:  "leap day included",
			start: date(2024, time.February, 28),
			end:   date(2024, time.March, 1),
			want: []time.Time{
				date(2024, time.February, 28),
				date(2024, time.February, 29),
				date(2024, time.March, 1),
			},
		},
		{
			name:  "inverted range is empty",
			start: date(2025, time.March, 2),
			end:   date(2025, time.March, 1),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnumerateDatesInclusive(tt.start, tt.end)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumerateDatesInclusiveTruncatesToMidnight(t *testing.T) {
	start := time.Date(2025, time.June, 1, 23, 45, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 3, 0, 15, 0, 0, time.UTC)

	got := EnumerateDatesInclusive(start, end)
	require.Len(t, got, 3)
	for _, d := range got {
		assert.Equal(t, 0, d.Hour())
		assert.Equal(t, time.UTC, d.Location())
	}
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2025-01", MonthKey(date(2025, time.January, 31)))
	assert.Equal(t, "2025-11", MonthKey(date(2025, time.November, 1)))
}

func TestGroupByMonth(t *testing.T) {
	dates := []time.Time{
		date(2025, time.January, 30),
		date(2025, time.January, 31),
		date(2025, time.February, 1),
		date(2025, time.March, 5),
	}

	groups, keys := GroupByMonth(dates)

	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, keys)
	assert.Equal(t, []time.Time{dates[0], dates[1]}, groups["2025-01"])
	assert.Equal(t, []time.Time{dates[2]}, groups["2025-02"])
	assert.Equal(t, []time.Time{dates[3]}, groups["2025-03"])
}

func TestGroupByMonthEmpty(t *testing.T) {
	groups, keys := GroupByMonth(nil)
	assert.Empty(t, groups)
	assert.Empty(t, keys)
}

func TestYesterday(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.January, 14), Yesterday(now))

	// Yesterday from the first of a month lands on the previous month.
	now = time.Date(2025, time.March, 1, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, date(2025, time.February, 28), Yesterday(now))
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2025-11-22")
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.November, 22), d)
	assert.Equal(t, "2025-11-22", FormatDate(d))

	_, err = ParseDate("22/11/2025")
	assert.Error(t, err)
}
