package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

func day(offset int) shared.Date {
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC) // a Monday
	return shared.DateOf(base.AddDate(0, 0, offset))
}

func TestUpdateStreak_ConsecutiveDaySequence(t *testing.T) {
	policy := DefaultStreakPolicy()

	// Daily minutes [30, 30, 0, 30] across four consecutive days. The
	// zero-minute day leaves the streak untouched, so the following day
	// sees a two-day gap from the last recorded date and resets to 1.
	minutes := []int{30, 30, 0, 30}
	wantDays := []int{1, 2, 2, 1}

	state := StreakState{}
	for i, m := range minutes {
		state, _ = policy.UpdateStreak(state, shared.Minutes(m), day(i))
		assert.Equal(t, wantDays[i], state.Days, "day %d", i)
	}
}

func TestUpdateStreak_BelowThresholdUnchanged(t *testing.T) {
	policy := DefaultStreakPolicy()

	start := StreakState{LastDate: day(0), Days: 3}
	state, outcome := policy.UpdateStreak(start, 24, day(1))

	assert.Equal(t, start, state)
	assert.Equal(t, StreakUnchanged, outcome)
}

func TestUpdateStreak_FirstEverSession(t *testing.T) {
	policy := DefaultStreakPolicy()

	state, outcome := policy.UpdateStreak(StreakState{}, 25, day(0))

	assert.Equal(t, 1, state.Days)
	assert.Equal(t, day(0), state.LastDate)
	assert.Equal(t, StreakStarted, outcome)
}

func TestUpdateStreak_SameDayIdempotent(t *testing.T) {
	policy := DefaultStreakPolicy()

	first, _ := policy.UpdateStreak(StreakState{}, 30, day(0))
	second, outcome := policy.UpdateStreak(first, 45, day(0))

	assert.Equal(t, first, second)
	assert.Equal(t, StreakUnchanged, outcome)
}

func TestUpdateStreak_GapResets(t *testing.T) {
	policy := DefaultStreakPolicy()

	state := StreakState{LastDate: day(0), Days: 6}
	state, outcome := policy.UpdateStreak(state, 30, day(3))

	assert.Equal(t, 1, state.Days)
	assert.Equal(t, day(3), state.LastDate)
	assert.Equal(t, StreakReset, outcome)
}

func TestUpdateStreak_ExtendsNextDay(t *testing.T) {
	policy := DefaultStreakPolicy()

	state := StreakState{LastDate: day(0), Days: 6}
	state, outcome := policy.UpdateStreak(state, 25, day(1))

	assert.Equal(t, 7, state.Days)
	assert.Equal(t, StreakExtended, outcome)
}
