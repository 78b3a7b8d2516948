package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression_FieldForms(t *testing.T) {
	tests := []struct {
		name string
		expr string
		ok   bool
	}{
		{"wildcard all", "* * * * *", true},
		{"step", "*/15 * * * *", true},
		{"range", "0 9-17 * * *", true},
		{"list", "0 0,12 * * *", true},
		{"single values", "30 21 1 6 0", true},
		{"too few fields", "* * * *", false},
		{"too many fields", "* * * * * *", false},
		{"minute out of range", "60 * * * *", false},
		{"weekday out of range", "* * * * 7", false},
		{"garbage", "a b c d e", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, err := ParseCronExpression(tt.expr)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.expr, ce.String())
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCronNext_EveryMonday(t *testing.T) {
	ce := MustParseCronExpression(EveryMonday)

	// Saturday afternoon rolls to Monday midnight.
	saturday := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), ce.Next(saturday))

	// Exactly at Monday midnight the next fire is a week away.
	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), ce.Next(monday))
}

func TestCronNext_StepMinutes(t *testing.T) {
	ce := MustParseCronExpression(Every15Minutes)

	at := time.Date(2026, 8, 29, 10, 7, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC), ce.Next(at))

	onBoundary := time.Date(2026, 8, 29, 10, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC), ce.Next(onBoundary))
}

func TestCronNext_HourRollsToNextDay(t *testing.T) {
	ce := MustParseCronExpression("0 9 * * *")

	evening := time.Date(2026, 8, 29, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC), ce.Next(evening))
}

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)

	at := time.Date(2026, 8, 29, 10, 7, 0, 0, time.UTC)
	assert.Equal(t, at.Add(15*time.Minute), s.Next(at))
	assert.Contains(t, s.String(), "15m")
}
