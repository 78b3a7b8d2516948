package progression

import (
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// StreakPolicy holds the streak tracker's tunables.
type StreakPolicy struct {
	// ThresholdMinutes is the minimum triggering-session duration that
	// counts toward the streak. Sub-threshold sessions leave it untouched.
	ThresholdMinutes int
}

// DefaultStreakPolicy returns the production threshold of 25 minutes.
func DefaultStreakPolicy() StreakPolicy {
	return StreakPolicy{ThresholdMinutes: 25}
}

// StreakState is the tracker's persisted pair. A zero LastDate means the
// user has never crossed the threshold.
type StreakState struct {
	LastDate shared.Date
	Days     int
}

// StreakOutcome classifies what an update did, for event emission.
type StreakOutcome int

const (
	StreakUnchanged StreakOutcome = iota
	StreakStarted
	StreakExtended
	StreakReset
)

// UpdateStreak advances the streak from a finished session. Only the
// triggering session's minutes are compared against the threshold, not the
// day's cumulative total. Day arithmetic:
//
//	no prior date    -> streak = 1
//	same day         -> unchanged
//	next day         -> streak + 1
//	gap of 2+ days   -> streak = 1
//
// Skipped sessions must be passed as 0 minutes by the caller.
func (p StreakPolicy) UpdateStreak(state StreakState, studiedMinutes shared.Minutes, today shared.Date) (StreakState, StreakOutcome) {
	if studiedMinutes.Int() < p.ThresholdMinutes {
		return state, StreakUnchanged
	}

	if state.LastDate.IsZero() {
		return StreakState{LastDate: today, Days: 1}, StreakStarted
	}

	switch delta := state.LastDate.DaysUntil(today); delta {
	case 0:
		return state, StreakUnchanged
	case 1:
		return StreakState{LastDate: today, Days: state.Days + 1}, StreakExtended
	default:
		return StreakState{LastDate: today, Days: 1}, StreakReset
	}
}
