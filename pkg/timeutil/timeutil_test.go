package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfWeek_MondayBoundary(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := Date(2026, 8, 24)

	assert.Equal(t, monday, StartOfWeek(DateTime(2026, 8, 24, 0, 0, 0)))
	assert.Equal(t, monday, StartOfWeek(DateTime(2026, 8, 27, 15, 30, 0)))
	// Sunday still belongs to the week that started the previous Monday.
	assert.Equal(t, monday, StartOfWeek(DateTime(2026, 8, 30, 23, 59, 59)))
	// One second later is the next week.
	assert.Equal(t, Date(2026, 8, 31), StartOfWeek(DateTime(2026, 8, 31, 0, 0, 1)))
}

func TestEndOfWeek_IsSundayNight(t *testing.T) {
	end := EndOfWeek(Date(2026, 8, 26))
	assert.Equal(t, time.Sunday, end.Weekday())
	assert.Equal(t, 30, end.Day())
	assert.Equal(t, 23, end.Hour())
}

func TestISOWeekID_YearRollover(t *testing.T) {
	// 2026-01-01 falls in week 1 of ISO year 2026.
	assert.Equal(t, "2026-W01", ISOWeekID(Date(2026, 1, 1)))
	// 2027-01-01 is a Friday and still belongs to ISO 2026 week 53.
	assert.Equal(t, "2026-W53", ISOWeekID(Date(2027, 1, 1)))
	assert.Equal(t, "2026-W35", ISOWeekID(Date(2026, 8, 29)))
}

func TestPreviousWeekID(t *testing.T) {
	assert.Equal(t, "2026-W34", PreviousWeekID(Date(2026, 8, 29)))
	// Crossing the year boundary backwards.
	assert.Equal(t, "2025-W52", PreviousWeekID(Date(2026, 1, 1)))
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	assert.Equal(t, 1, DaysBetween(DateTime(2026, 8, 24, 23, 59, 0), DateTime(2026, 8, 25, 0, 1, 0)))
	assert.Equal(t, 0, DaysBetween(DateTime(2026, 8, 24, 0, 0, 0), DateTime(2026, 8, 24, 23, 59, 0)))
	assert.Equal(t, -2, DaysBetween(Date(2026, 8, 26), Date(2026, 8, 24)))
}

func TestIsConsecutiveDay(t *testing.T) {
	assert.True(t, IsConsecutiveDay(Date(2026, 8, 24), Date(2026, 8, 25)))
	assert.False(t, IsConsecutiveDay(Date(2026, 8, 24), Date(2026, 8, 26)))
	assert.False(t, IsConsecutiveDay(Date(2026, 8, 25), Date(2026, 8, 24)))
}

func TestOverlapMinutes(t *testing.T) {
	base := DateTime(2026, 8, 24, 10, 0, 0)

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       int
	}{
		{
			name:   "full containment",
			aStart: base, aEnd: base.Add(60 * time.Minute),
			bStart: base.Add(10 * time.Minute), bEnd: base.Add(30 * time.Minute),
			want: 20,
		},
		{
			name:   "partial overlap",
			aStart: base, aEnd: base.Add(30 * time.Minute),
			bStart: base.Add(20 * time.Minute), bEnd: base.Add(60 * time.Minute),
			want: 10,
		},
		{
			name:   "disjoint",
			aStart: base, aEnd: base.Add(10 * time.Minute),
			bStart: base.Add(20 * time.Minute), bEnd: base.Add(30 * time.Minute),
			want: 0,
		},
		{
			name:   "touching edges",
			aStart: base, aEnd: base.Add(10 * time.Minute),
			bStart: base.Add(10 * time.Minute), bEnd: base.Add(20 * time.Minute),
			want: 0,
		},
		{
			name:   "partial minute floors",
			aStart: base, aEnd: base.Add(90 * time.Second),
			bStart: base, bEnd: base.Add(10 * time.Minute),
			want: 1,
		},
		{
			name:   "inverted window",
			aStart: base.Add(10 * time.Minute), aEnd: base,
			bStart: base, bEnd: base.Add(10 * time.Minute),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverlapMinutes(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := ParseDate("2026-08-29")
	assert.NoError(t, err)
	assert.Equal(t, Date(2026, 8, 29), d)
	assert.Equal(t, "2026-08-29", FormatDateStr(d))

	_, err = ParseDate("29.08.2026")
	assert.Error(t, err)
}
