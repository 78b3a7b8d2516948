package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserID_TrimsAndValidates(t *testing.T) {
	id, err := NewUserID("  user-1  ")
	require.NoError(t, err)
	assert.Equal(t, UserID("user-1"), id)

	_, err = NewUserID("   ")
	assert.Error(t, err)
}

func TestWeekIDOf_ISOBoundaries(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want WeekID
	}{
		{"mid year", time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), "2026-W35"},
		{"sunday still same week", time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC), "2026-W35"},
		{"monday starts next week", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), "2026-W36"},
		{"january in previous iso year", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W53"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekIDOf(tt.at)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestNewWeekID_FormatValidation(t *testing.T) {
	_, err := NewWeekID("2026-W35")
	assert.NoError(t, err)

	for _, bad := range []string{"2026-35", "2026W35", "26-W35", "2026-W5", ""} {
		_, err := NewWeekID(bad)
		assert.ErrorIs(t, err, ErrInvalidWeekID, "input %q", bad)
	}
}

func TestEconomyValues_RejectNegatives(t *testing.T) {
	_, err := NewCoins(-1)
	assert.Error(t, err)
	_, err = NewXP(-1)
	assert.Error(t, err)
	_, err = NewMinutes(-1)
	assert.ErrorIs(t, err, ErrNegativeDuration)
	_, err = NewLevel(0)
	assert.ErrorIs(t, err, ErrInvalidLevel)

	c, err := NewCoins(100)
	require.NoError(t, err)
	assert.Equal(t, Coins(150), c.Add(50))
}

func TestTimeRange_OverlapAndExpand(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	r, err := NewTimeRange(base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Minutes(60), r.Minutes())

	// Half-open: start is inside, end is not.
	assert.True(t, r.Contains(base))
	assert.False(t, r.Contains(base.Add(time.Hour)))

	touching := TimeRange{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}
	assert.False(t, r.Overlaps(touching))
	assert.True(t, r.Overlaps(TimeRange{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}))

	expanded := r.Expand(10 * time.Minute)
	assert.Equal(t, base.Add(-10*time.Minute), expanded.Start)
	assert.Equal(t, base.Add(70*time.Minute), expanded.End)

	_, err = NewTimeRange(base, base)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestDate_Arithmetic(t *testing.T) {
	morning := DateOf(time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC))
	evening := DateOf(time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC))
	nextDay := DateOf(time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC))

	assert.True(t, morning.Equal(evening))
	assert.Equal(t, 0, morning.DaysUntil(evening))
	assert.Equal(t, 1, morning.DaysUntil(nextDay))
	assert.Equal(t, -1, nextDay.DaysUntil(morning))
	assert.Equal(t, "2026-08-29", morning.String())
}
